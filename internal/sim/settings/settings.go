// Package settings holds the fixed world-seed constants: named precision
// tiers, per-tier population limits, location types and biomes. These are
// shared constants, not runtime state; anything tunable at runtime lives in
// internal/tuning.
package settings

// Tier names a geohash precision level, from coarse to fine.
type Tier string

const (
	TierContinent Tier = "continent"
	TierTerritory Tier = "territory"
	TierRegion    Tier = "region"
	TierCity      Tier = "city"
	TierTown      Tier = "town"
	TierHouse     Tier = "house"
	TierPlot      Tier = "plot"
	TierUnit      Tier = "unit"
)

var tierPrecision = map[Tier]int{
	TierContinent: 1,
	TierTerritory: 2,
	TierRegion:    3,
	TierCity:      4,
	TierTown:      5,
	TierHouse:     6,
	TierPlot:      7,
	TierUnit:      8,
}

var precisionTier = func() map[int]Tier {
	m := make(map[int]Tier, len(tierPrecision))
	for t, p := range tierPrecision {
		m[p] = t
	}
	return m
}()

// Precision returns the hash length of a tier.
func Precision(t Tier) int {
	return tierPrecision[t]
}

// TierAtPrecision maps a hash length back to its tier.
func TierAtPrecision(p int) (Tier, bool) {
	t, ok := precisionTier[p]
	return t, ok
}

// defaultMonsterLimits caps the live monster population per enclosing tier.
// The spawn orchestrator climbs these from fine to coarse; any full tier
// vetoes further spawns underneath it.
var defaultMonsterLimits = map[Tier]int{
	TierContinent: 10000,
	TierTerritory: 1000,
	TierRegion:    300,
	TierCity:      100,
	TierTown:      20,
	TierHouse:     5,
	TierPlot:      2,
	TierUnit:      1,
}

// MonsterLimit returns the default population cap for a tier.
func MonsterLimit(t Tier) int {
	return defaultMonsterLimits[t]
}

// LocationType tags where an entity is: on the surface grid, in one of the
// underground dungeon grids, or in a non-spatial holder such as an inventory.
type LocationType string

const (
	LocationSurface   LocationType = "surface"
	LocationDungeon1  LocationType = "d1"
	LocationDungeon2  LocationType = "d2"
	LocationDungeon3  LocationType = "d3"
	LocationDungeon4  LocationType = "d4"
	LocationInventory LocationType = "inv"
)

var geohashLocationTypes = map[LocationType]struct{}{
	LocationSurface:  {},
	LocationDungeon1: {},
	LocationDungeon2: {},
	LocationDungeon3: {},
	LocationDungeon4: {},
}

// IsGeohashLocation reports whether entities at this location type occupy
// geohash cells (as opposed to being held inside another entity).
func IsGeohashLocation(t LocationType) bool {
	_, ok := geohashLocationTypes[t]
	return ok
}

// IsDungeonLocation reports whether the location type is an underground grid.
func IsDungeonLocation(t LocationType) bool {
	return IsGeohashLocation(t) && t != LocationSurface
}

// DefaultInstance is the location instance of the main shared world; parallel
// copies (a particular dungeon run, a quest shard) carry their own instance.
const DefaultInstance = "@"

// Biome classifies what occupies a cell.
type Biome string

const (
	BiomeGrassland   Biome = "grassland"
	BiomeForest      Biome = "forest"
	BiomeDesert      Biome = "desert"
	BiomeWater       Biome = "water"
	BiomeRocks       Biome = "rocks"
	BiomeUnderground Biome = "underground"
)

var biomeSpeed = map[Biome]float64{
	BiomeGrassland:   1.0,
	BiomeForest:      0.8,
	BiomeDesert:      0.7,
	BiomeWater:       0,
	BiomeRocks:       0.5,
	BiomeUnderground: 0,
}

// TraversableSpeed returns the movement multiplier of a biome; zero means
// the biome itself blocks traversal (water, dungeon walls).
func TraversableSpeed(b Biome) float64 {
	return biomeSpeed[b]
}

// Dungeon generation constants. Rooms are town cells, corridors house cells
// (one tier finer, so a corridor can never cover a room's full footprint),
// entrances unit cells, and the dungeon's home cell is a city cell.
const (
	MinRooms     = 12
	MaxRooms     = 18
	MinEntrances = 1
	MaxEntrances = 3
)
