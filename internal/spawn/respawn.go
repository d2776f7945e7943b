package spawn

import (
	"context"
	"sort"

	"github.com/sirupsen/logrus"

	"crossover.world/internal/persistence/log"
	"crossover.world/internal/sim/geohash"
	"crossover.world/internal/sim/prng"
	"crossover.world/internal/sim/settings"
)

// RespawnOptions scope one respawn sweep.
type RespawnOptions struct {
	// Players restricts the sweep to these player ids; empty means all
	// logged-in players.
	Players          []string
	LocationInstance string
	// Seed drives the child shuffle and beast choice; a ticker passes a
	// fresh seed every sweep, tests pass a fixed one.
	Seed uint64
}

// RespawnMonsters tops up the monster population at the periphery of player
// activity: plots bordering, but not containing, logged-in players. A spawn
// failing never aborts the sweep. Returns how many of each beast spawned.
func (o *Orchestrator) RespawnMonsters(ctx context.Context, opts RespawnOptions) (map[string]int, error) {
	locI := opts.LocationInstance
	if locI == "" {
		locI = settings.DefaultInstance
	}
	players, err := o.store.LoggedInPlayers(ctx, locI, opts.Players)
	if err != nil {
		return nil, err
	}

	spawned := map[string]int{}

	byLocT := map[settings.LocationType][]string{}
	for _, p := range players {
		if len(p.Loc) == 0 || !settings.IsGeohashLocation(p.LocT) {
			continue
		}
		byLocT[p.LocT] = append(byLocT[p.LocT], p.Loc[0])
	}
	locTs := make([]settings.LocationType, 0, len(byLocT))
	for locT := range byLocT {
		locTs = append(locTs, locT)
	}
	sort.Slice(locTs, func(i, j int) bool { return locTs[i] < locTs[j] })

	for _, locT := range locTs {
		// Player plots: one level above unit precision.
		parentSet := map[string]struct{}{}
		var parents []string
		for _, cell := range byLocT[locT] {
			parent := cell[:len(cell)-1]
			if _, ok := parentSet[parent]; !ok {
				parentSet[parent] = struct{}{}
				parents = append(parents, parent)
			}
		}

		periphery, err := geohash.Bordering(parents)
		if err != nil {
			return nil, err
		}
		for _, cell := range periphery {
			ok, err := o.CanSpawnMonstersAt(ctx, cell, locT, locI)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}

			tier, ok := settings.TierAtPrecision(len(cell))
			if !ok {
				continue
			}
			n, err := o.store.CountMonsters(ctx, []string{cell}, locT, locI)
			if err != nil {
				return nil, err
			}
			toSpawn := o.limit(tier) - n
			if toSpawn <= 0 {
				continue
			}

			children, err := geohash.Children(cell)
			if err != nil {
				return nil, err
			}
			cellSeed := opts.Seed + prng.SeedFromString(cell+string(locT))
			order := prng.Shuffle(cellSeed, len(children))
			for i := 0; i < toSpawn; i++ {
				child := children[order[i%len(order)]]
				beast := o.pickBeast(cellSeed + uint64(i))
				if beast == "" {
					continue
				}
				m, err := o.SpawnMonster(ctx, MonsterSpawn{
					Geohash:          child,
					LocationType:     locT,
					LocationInstance: locI,
					Beast:            beast,
				})
				if err != nil {
					o.log.WithError(err).WithFields(logrus.Fields{
						"beast": beast,
						"cell":  child,
					}).Warn("respawn skipped")
					o.writeAudit(log.SpawnRecord{
						Kind: "respawn", Template: beast,
						Loc: []string{child}, LocT: string(locT), LocI: locI,
						Error: err.Error(),
					})
					continue
				}
				spawned[m.Beast]++
			}
		}
	}
	return spawned, nil
}

// pickBeast makes a seeded weighted choice over the bestiary. Beasts with
// zero weight never respawn on their own.
func (o *Orchestrator) pickBeast(seed uint64) string {
	names := make([]string, 0, len(o.cats.Bestiary))
	total := 0
	for name, b := range o.cats.Bestiary {
		if b.SpawnWeight > 0 {
			names = append(names, name)
			total += b.SpawnWeight
		}
	}
	if total == 0 {
		return ""
	}
	sort.Strings(names)
	r := prng.Intn(seed, total)
	for _, name := range names {
		r -= o.cats.Bestiary[name].SpawnWeight
		if r < 0 {
			return name
		}
	}
	return names[len(names)-1]
}
