package dungeon

import (
	"fmt"

	"crossover.world/internal/sim/catalogs"
	"crossover.world/internal/sim/prng"
	"crossover.world/internal/sim/settings"
)

// TerrainProvider resolves the biome of a surface cell. The engine only
// requires that it is deterministic per cell.
type TerrainProvider interface {
	BiomeAt(cell string) (settings.Biome, float64, error)
}

// Resolver answers "what biome is this cell" for every geohash location
// type. Underground cells are resolved against the generated dungeon graph,
// surface cells against the terrain provider.
type Resolver struct {
	Cache    Cache
	Catalogs *catalogs.Catalogs
	Terrain  TerrainProvider
}

func NewResolver(cache Cache, cats *catalogs.Catalogs, terrain TerrainProvider) *Resolver {
	if terrain == nil {
		terrain = DefaultTerrain{}
	}
	return &Resolver{Cache: cache, Catalogs: cats, Terrain: terrain}
}

// Graph returns the dungeon graph for a territory, generating and caching
// it on first use.
func (r *Resolver) Graph(territory string, locT settings.LocationType) (*Graph, error) {
	key := cacheKey(territory, locT)
	if r.Cache != nil {
		if g, ok := r.Cache.Get(key); ok {
			return g, nil
		}
	}
	var override *catalogs.DungeonDef
	if r.Catalogs != nil {
		override = r.Catalogs.DungeonForTerritory(territory)
	}
	g, err := Generate(territory, locT, override)
	if err != nil {
		return nil, err
	}
	if r.Cache != nil {
		r.Cache.Set(key, g)
	}
	return g, nil
}

// BiomeAt resolves the biome and its strength at a cell. Underground, a cell
// is grassland inside a room or corridor and solid wall everywhere else.
func (r *Resolver) BiomeAt(cell string, locT settings.LocationType) (settings.Biome, float64, error) {
	if !settings.IsGeohashLocation(locT) {
		return "", 0, fmt.Errorf("location type %q has no biomes", locT)
	}
	if locT == settings.LocationSurface {
		return r.Terrain.BiomeAt(cell)
	}

	if len(cell) < settings.Precision(settings.TierTerritory) {
		return "", 0, fmt.Errorf("cell %q coarser than territory precision", cell)
	}
	territory := cell[:settings.Precision(settings.TierTerritory)]
	g, err := r.Graph(territory, locT)
	if err != nil {
		return "", 0, err
	}
	if _, ok := g.RoomAt(cell); ok {
		return settings.BiomeGrassland, 1, nil
	}
	if g.InCorridor(cell) {
		return settings.BiomeGrassland, 1, nil
	}
	return settings.BiomeUnderground, 1, nil
}

// DefaultTerrain assigns surface biomes from seeded noise sampled at city
// precision, so a whole city cell shares one biome and neighbouring cities
// vary independently. Grassland dominates; water and rocks are rare enough
// that spawn searches rarely dead-end.
type DefaultTerrain struct {
	Seed string
}

func (t DefaultTerrain) BiomeAt(cell string) (settings.Biome, float64, error) {
	p := settings.Precision(settings.TierCity)
	if len(cell) < p {
		return "", 0, fmt.Errorf("surface cell %q coarser than city precision", cell)
	}
	v := prng.Float(prng.SeedFromString(t.Seed + ":" + cell[:p]))
	switch {
	case v < 0.08:
		return settings.BiomeWater, 1, nil
	case v < 0.16:
		return settings.BiomeRocks, 1, nil
	case v < 0.38:
		return settings.BiomeForest, 1, nil
	case v < 0.46:
		return settings.BiomeDesert, 1, nil
	default:
		return settings.BiomeGrassland, 1, nil
	}
}
