// Package dungeon generates the underground layer: a deterministic room
// graph per territory and underground location type, plus the biome resolver
// that classifies any cell as room, corridor or wall. Regenerating a graph
// from the same inputs always yields the same layout, so no layout is ever
// persisted.
package dungeon

import (
	"fmt"
	"math"
	"sort"

	"crossover.world/internal/sim/catalogs"
	"crossover.world/internal/sim/geohash"
	"crossover.world/internal/sim/prng"
	"crossover.world/internal/sim/settings"
)

// Room is one chamber of a dungeon, a town cell. Entrances are unit cells
// that connect the surface to the underground grid.
type Room struct {
	Geohash     string   `json:"geohash"`
	Connections []string `json:"connections"`
	Entrances   []string `json:"entrances"`
}

// Graph is the full layout of one dungeon.
type Graph struct {
	Territory         string                `json:"territory"`
	LocationType      settings.LocationType `json:"locationType"`
	Rooms             []*Room               `json:"rooms"`
	Corridors         map[string]struct{}   `json:"-"`
	CorridorPrecision int                   `json:"corridorPrecision"`
}

// Generate builds the dungeon graph for a territory and underground location
// type. A designer override from the dungeon catalog pins the home cell and
// seeds extra rooms; generated rooms fill in around them.
func Generate(territory string, locT settings.LocationType, override *catalogs.DungeonDef) (*Graph, error) {
	if !settings.IsDungeonLocation(locT) {
		return nil, fmt.Errorf("location type %q is not underground", locT)
	}
	if len(territory) != settings.Precision(settings.TierTerritory) {
		return nil, fmt.Errorf("territory %q must be %d characters", territory, settings.Precision(settings.TierTerritory))
	}
	if err := geohash.Validate(territory); err != nil {
		return nil, err
	}

	seed := prng.SeedFromString(territory + string(locT))
	rv := prng.Float(seed)

	// The dungeon's home cell is city precision.
	var city string
	var err error
	if override != nil {
		city = override.Dungeon
	} else {
		city, err = geohash.AutoCorrectPrecisionSeeded(territory, settings.Precision(settings.TierCity), rv)
		if err != nil {
			return nil, err
		}
	}

	var rooms []*Room

	// Designer-authored rooms first, entrances taken verbatim.
	if override != nil {
		for _, def := range override.Rooms {
			town, err := geohash.AutoCorrectPrecision(def.Room, settings.Precision(settings.TierTown))
			if err != nil {
				return nil, err
			}
			rooms = append(rooms, &Room{Geohash: town, Entrances: def.Entrances})
		}
	}

	numRooms := int(rv*float64(settings.MaxRooms-settings.MinRooms+1)) + settings.MinRooms
	numEntrances := int(rv*float64(settings.MaxEntrances-settings.MinEntrances+1)) + settings.MinEntrances
	entranceCount := 0
	for i := 0; i < numRooms; i++ {
		roomRv := prng.Float(seed + uint64(i))
		town, err := geohash.AutoCorrectPrecisionSeeded(city, settings.Precision(settings.TierTown), roomRv)
		if err != nil {
			return nil, err
		}
		var entrances []string
		if entranceCount < numEntrances {
			entrance, err := geohash.AutoCorrectPrecisionSeeded(town, settings.Precision(settings.TierUnit), roomRv)
			if err != nil {
				return nil, err
			}
			entrances = append(entrances, entrance)
			entranceCount++
		}
		rooms = append(rooms, &Room{Geohash: town, Entrances: entrances})
	}
	rooms = dedupeRooms(rooms)

	// Connect rooms with corridors one tier finer than the rooms.
	corridors := map[string]struct{}{}
	corridorPrecision := settings.Precision(settings.TierHouse)
	connected := map[string]struct{}{}
	current := rooms[int(rv*float64(len(rooms)))]
	connected[current.Geohash] = struct{}{}

	for len(connected) < len(rooms) {
		var unconnected []*Room
		for _, r := range rooms {
			if _, ok := connected[r.Geohash]; !ok {
				unconnected = append(unconnected, r)
			}
		}
		if err := sortByDistance(unconnected, current.Geohash); err != nil {
			return nil, err
		}

		numConnections := 1 + int(rv*2)
		if numConnections > len(unconnected) {
			numConnections = len(unconnected)
		}
		for i := 0; i < numConnections; i++ {
			next := unconnected[i]
			line, err := generateLine(current.Geohash, next.Geohash, corridorPrecision)
			if err != nil {
				return nil, err
			}
			for _, c := range line {
				corridors[c] = struct{}{}
			}
			current.Connections = append(current.Connections, next.Geohash)
			next.Connections = append(next.Connections, current.Geohash)
			connected[next.Geohash] = struct{}{}
		}
		current = unconnected[0]
	}

	return &Graph{
		Territory:         territory,
		LocationType:      locT,
		Rooms:             rooms,
		Corridors:         corridors,
		CorridorPrecision: corridorPrecision,
	}, nil
}

// RoomAt returns the room whose town cell contains the given cell.
func (g *Graph) RoomAt(cell string) (*Room, bool) {
	for _, r := range g.Rooms {
		if len(cell) >= len(r.Geohash) && cell[:len(r.Geohash)] == r.Geohash {
			return r, true
		}
	}
	return nil, false
}

// InCorridor reports whether the cell lies inside a corridor.
func (g *Graph) InCorridor(cell string) bool {
	if len(cell) < g.CorridorPrecision {
		return false
	}
	_, ok := g.Corridors[cell[:g.CorridorPrecision]]
	return ok
}

// Entrances returns every surface entrance of the dungeon, in room order.
func (g *Graph) Entrances() []string {
	var out []string
	for _, r := range g.Rooms {
		out = append(out, r.Entrances...)
	}
	return out
}

func dedupeRooms(rooms []*Room) []*Room {
	seen := map[string]struct{}{}
	out := rooms[:0]
	for _, r := range rooms {
		if _, ok := seen[r.Geohash]; ok {
			continue
		}
		seen[r.Geohash] = struct{}{}
		out = append(out, r)
	}
	return out
}

func sortByDistance(rooms []*Room, from string) error {
	dists := make(map[string]float64, len(rooms))
	for _, r := range rooms {
		d, err := geohash.Distance(from, r.Geohash)
		if err != nil {
			return err
		}
		dists[r.Geohash] = d
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return dists[rooms[i].Geohash] < dists[rooms[j].Geohash]
	})
	return nil
}

// generateLine rasterizes a straight corridor between two cells at the given
// precision, endpoints included.
func generateLine(start, end string, precision int) ([]string, error) {
	start, err := geohash.AutoCorrectPrecision(start, precision)
	if err != nil {
		return nil, err
	}
	end, err = geohash.AutoCorrectPrecision(end, precision)
	if err != nil {
		return nil, err
	}
	x1, y1, err := geohash.ToColRow(start)
	if err != nil {
		return nil, err
	}
	x2, y2, err := geohash.ToColRow(end)
	if err != nil {
		return nil, err
	}
	steps := abs(x2 - x1)
	if dy := abs(y2 - y1); dy > steps {
		steps = dy
	}
	points := make([]string, 0, steps+1)
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps != 0 {
			t = float64(i) / float64(steps)
		}
		x := int(math.Round(float64(x1) + t*float64(x2-x1)))
		y := int(math.Round(float64(y1) + t*float64(y2-y1)))
		points = append(points, geohash.FromColRow(x, y, precision))
	}
	return points, nil
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
