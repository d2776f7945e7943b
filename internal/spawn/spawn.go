// Package spawn places entities into the world: monsters, items, inventory
// items and multi-plot world structures. Placement is gated by population
// limits, biome traversability and colliders; every outcome is written to
// the spawn audit log.
package spawn

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"crossover.world/internal/persistence/log"
	"crossover.world/internal/sim/catalogs"
	"crossover.world/internal/sim/dungeon"
	"crossover.world/internal/sim/geohash"
	"crossover.world/internal/sim/prng"
	"crossover.world/internal/sim/settings"
	"crossover.world/internal/store"
)

// Config wires an Orchestrator. Store, Catalogs and Biomes are required;
// everything else has a sensible default.
type Config struct {
	Store    store.EntityStore
	Catalogs *catalogs.Catalogs
	Biomes   *dungeon.Resolver
	Audit    *log.SpawnLogger
	Logger   *logrus.Logger
	// Limit overrides the per-tier monster population caps.
	Limit func(settings.Tier) int
	// Pin overrides the id pin source, for deterministic tests.
	Pin func() string
}

// Orchestrator is the only writer of spawned entities.
type Orchestrator struct {
	store  store.EntityStore
	cats   *catalogs.Catalogs
	biomes *dungeon.Resolver
	audit  *log.SpawnLogger
	log    *logrus.Logger
	limit  func(settings.Tier) int
	pin    func() string
	now    func() time.Time
}

func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		store:  cfg.Store,
		cats:   cfg.Catalogs,
		biomes: cfg.Biomes,
		audit:  cfg.Audit,
		log:    cfg.Logger,
		limit:  cfg.Limit,
		pin:    cfg.Pin,
		now:    time.Now,
	}
	if o.log == nil {
		o.log = logrus.New()
		o.log.SetOutput(io.Discard)
	}
	if o.limit == nil {
		o.limit = settings.MonsterLimit
	}
	if o.pin == nil {
		o.pin = func() string {
			return prng.Pin(uint64(time.Now().UnixNano()), 4)
		}
	}
	return o
}

// MonsterSpawn describes one monster placement.
type MonsterSpawn struct {
	Geohash          string
	LocationType     settings.LocationType
	LocationInstance string
	Beast            string
	AdditionalSkills map[string]int
	// UniqueSuffix pins the monster id; respawning with the same suffix
	// replaces the previous instance.
	UniqueSuffix string
}

// SpawnMonster places a monster, correcting the anchor to the beast's asset
// precision and vetoing untraversable footprints.
func (o *Orchestrator) SpawnMonster(ctx context.Context, req MonsterSpawn) (store.MonsterEntity, error) {
	var m store.MonsterEntity
	if !settings.IsGeohashLocation(req.LocationType) {
		return m, ErrNotGeohashLocation
	}
	beast, ok := o.cats.Beast(req.Beast)
	if !ok {
		return m, fmt.Errorf("beast %s: %w", req.Beast, ErrTemplateNotFound)
	}
	if req.LocationInstance == "" {
		req.LocationInstance = settings.DefaultInstance
	}

	anchor, err := geohash.AutoCorrectPrecision(req.Geohash, beast.Asset.Precision)
	if err != nil {
		return m, err
	}
	location, err := geohash.CalculateLocation(anchor, beast.Asset.Width, beast.Asset.Height)
	if err != nil {
		return m, err
	}

	traversable, err := o.IsTraversable(ctx, location, req.LocationType, req.LocationInstance)
	if err != nil {
		return m, err
	}
	if !traversable {
		return m, &BlockedError{Template: req.Beast, Cells: location}
	}

	skills := mergeAdditive(req.AdditionalSkills, beast.Skills)

	var id string
	replaced := false
	if req.UniqueSuffix != "" {
		id = fmt.Sprintf("monster_%s%s", req.Beast, req.UniqueSuffix)
		if _, ok, err := o.store.GetMonster(ctx, id); err != nil {
			return m, err
		} else if ok {
			replaced = true
		}
		if err := o.store.DeleteMonster(ctx, id); err != nil {
			return m, err
		}
	} else {
		count, err := o.store.MonstersTotal(ctx)
		if err != nil {
			return m, err
		}
		// The pin keeps concurrent spawns from landing on the same count.
		id = fmt.Sprintf("monster_%s%d%s", req.Beast, count, o.pin())
	}

	m = store.MonsterEntity{
		Monster: id,
		Name:    req.Beast,
		Beast:   req.Beast,
		Loc:     location,
		LocT:    req.LocationType,
		LocI:    req.LocationInstance,
		Skills:  skills,
	}
	applyStats(&m)

	m, err = o.store.SaveMonster(ctx, m)
	if err != nil {
		return m, err
	}
	o.log.WithFields(logrus.Fields{
		"monster": m.Monster,
		"beast":   m.Beast,
		"loc":     anchor,
		"locT":    m.LocT,
	}).Info("spawned monster")
	o.writeAudit(log.SpawnRecord{
		Kind: "monster", ID: m.Monster, Template: m.Beast,
		Loc: m.Loc, LocT: string(m.LocT), LocI: m.LocI, Replaced: replaced,
	})
	return m, nil
}

// ItemSpawn describes one item placement on the grid.
type ItemSpawn struct {
	Geohash          string
	LocationType     settings.LocationType
	LocationInstance string
	Prop             string
	Owner            string
	ConfigOwner      string
	Variables        map[string]any
	// IgnoreCollider skips the traversability gate, for props that are
	// themselves part of the terrain.
	IgnoreCollider bool
	// DestroyCollidingEntities removes colliding items at the footprint
	// before the gate runs.
	DestroyCollidingEntities bool
	UniqueSuffix             string
}

// SpawnItemAtGeohash places an item on the grid in its default state.
func (o *Orchestrator) SpawnItemAtGeohash(ctx context.Context, req ItemSpawn) (store.ItemEntity, error) {
	var it store.ItemEntity
	if !settings.IsGeohashLocation(req.LocationType) {
		return it, ErrNotGeohashLocation
	}
	prop, ok := o.cats.Prop(req.Prop)
	if !ok {
		return it, fmt.Errorf("prop %s: %w", req.Prop, ErrTemplateNotFound)
	}
	if req.LocationInstance == "" {
		req.LocationInstance = settings.DefaultInstance
	}

	vars, err := parseItemVariables(req.Variables, prop)
	if err != nil {
		return it, err
	}
	name := substituteVariables(prop.States["default"].Name, vars)

	anchor, err := geohash.AutoCorrectPrecision(req.Geohash, prop.Asset.Precision)
	if err != nil {
		return it, err
	}
	location, err := geohash.CalculateLocation(anchor, prop.Asset.Width, prop.Asset.Height)
	if err != nil {
		return it, err
	}

	if req.DestroyCollidingEntities {
		items, err := o.store.ItemsInGeohash(ctx, location, req.LocationType, req.LocationInstance)
		if err != nil {
			return it, err
		}
		for _, existing := range items {
			if !existing.Collider {
				continue
			}
			if err := o.store.DeleteItem(ctx, existing.Item); err != nil {
				return it, err
			}
			o.log.WithField("item", existing.Item).Info("destroyed colliding item")
		}
	}

	if !req.IgnoreCollider {
		traversable, err := o.IsTraversable(ctx, location, req.LocationType, req.LocationInstance)
		if err != nil {
			return it, err
		}
		if !traversable {
			return it, &BlockedError{Template: req.Prop, Cells: location}
		}
	}

	id, replaced, err := o.itemID(ctx, req.Prop, req.UniqueSuffix)
	if err != nil {
		return it, err
	}

	it = store.ItemEntity{
		Item:        id,
		Name:        name,
		Prop:        req.Prop,
		Loc:         location,
		LocT:        req.LocationType,
		LocI:        req.LocationInstance,
		Owner:       req.Owner,
		ConfigOwner: req.ConfigOwner,
		Collider:    prop.Collider,
		Durability:  prop.Durability,
		Charges:     prop.Charges,
		State:       "default",
		Vars:        vars,
	}
	it, err = o.store.SaveItem(ctx, it)
	if err != nil {
		return it, err
	}
	o.log.WithFields(logrus.Fields{
		"item": it.Item,
		"prop": it.Prop,
		"loc":  anchor,
		"locT": it.LocT,
	}).Info("spawned item")
	o.writeAudit(log.SpawnRecord{
		Kind: "item", ID: it.Item, Template: it.Prop,
		Loc: it.Loc, LocT: string(it.LocT), LocI: it.LocI, Replaced: replaced,
	})
	return it, nil
}

// SpawnItemInInventory places an item directly inside a holder entity,
// bypassing every spatial gate.
func (o *Orchestrator) SpawnItemInInventory(ctx context.Context, holder, propName string, variables map[string]any, owner, configOwner string) (store.ItemEntity, error) {
	var it store.ItemEntity
	prop, ok := o.cats.Prop(propName)
	if !ok {
		return it, fmt.Errorf("prop %s: %w", propName, ErrTemplateNotFound)
	}
	vars, err := parseItemVariables(variables, prop)
	if err != nil {
		return it, err
	}
	id, _, err := o.itemID(ctx, propName, "")
	if err != nil {
		return it, err
	}
	it = store.ItemEntity{
		Item:        id,
		Name:        substituteVariables(prop.States["default"].Name, vars),
		Prop:        propName,
		Loc:         []string{holder},
		LocT:        settings.LocationInventory,
		LocI:        settings.DefaultInstance,
		Owner:       owner,
		ConfigOwner: configOwner,
		Collider:    prop.Collider,
		Durability:  prop.Durability,
		Charges:     prop.Charges,
		State:       "default",
		Vars:        vars,
	}
	it, err = o.store.SaveItem(ctx, it)
	if err != nil {
		return it, err
	}
	o.writeAudit(log.SpawnRecord{
		Kind: "item", ID: it.Item, Template: it.Prop,
		Loc: it.Loc, LocT: string(it.LocT), LocI: it.LocI,
	})
	return it, nil
}

func (o *Orchestrator) itemID(ctx context.Context, propName, uniqueSuffix string) (id string, replaced bool, err error) {
	if uniqueSuffix != "" {
		id = fmt.Sprintf("item_%s%s", propName, uniqueSuffix)
		if _, ok, err := o.store.GetItem(ctx, id); err != nil {
			return "", false, err
		} else if ok {
			replaced = true
		}
		if err := o.store.DeleteItem(ctx, id); err != nil {
			return "", false, err
		}
		return id, replaced, nil
	}
	count, err := o.store.ItemsTotal(ctx)
	if err != nil {
		return "", false, err
	}
	return fmt.Sprintf("item_%s%d%s", propName, count, o.pin()), false, nil
}

// WorldSpawn describes a multi-plot world structure. Rows and Cols are the
// structure's footprint in unit cells; the footprint is expanded to whole
// plots.
type WorldSpawn struct {
	World            string // reuse this id if non-empty
	Geohash          string
	LocationType     settings.LocationType
	LocationInstance string
	AssetURL         string
	Rows             int
	Cols             int
}

// SpawnWorldStructure anchors a world structure to the plots covering its
// footprint. The anchor snaps to the top-left unit cell of its plot, so
// structures always tile whole plots.
func (o *Orchestrator) SpawnWorldStructure(ctx context.Context, req WorldSpawn) (store.WorldEntity, error) {
	var w store.WorldEntity
	if req.World != "" {
		existing, ok, err := o.store.GetWorld(ctx, req.World)
		if err != nil {
			return w, err
		}
		if ok {
			return existing, nil
		}
	}
	if !settings.IsGeohashLocation(req.LocationType) {
		return w, ErrNotGeohashLocation
	}
	if req.LocationInstance == "" {
		req.LocationInstance = settings.DefaultInstance
	}
	if req.Rows <= 0 || req.Cols <= 0 {
		return w, fmt.Errorf("world footprint %dx%d must be positive", req.Rows, req.Cols)
	}

	anchor, err := geohash.AutoCorrectPrecision(req.Geohash, settings.Precision(settings.TierUnit))
	if err != nil {
		return w, err
	}
	children, err := geohash.Children(anchor[:len(anchor)-1])
	if err != nil {
		return w, err
	}
	origin := children[0]

	plots, err := geohash.PlotsAt(origin, req.Rows, req.Cols)
	if err != nil {
		return w, err
	}

	overlapping, err := o.store.WorldsContainingGeohash(ctx, plots, req.LocationType)
	if err != nil {
		return w, err
	}
	if len(overlapping) > 0 {
		ids := make([]string, len(overlapping))
		for i, ow := range overlapping {
			ids[i] = ow.World
		}
		return w, &OverlapError{Worlds: ids}
	}

	id := req.World
	if id == "" {
		count, err := o.store.WorldsTotal(ctx)
		if err != nil {
			return w, err
		}
		id = fmt.Sprintf("world_%d", count)
	}

	w = store.WorldEntity{
		World: id,
		URL:   req.AssetURL,
		Loc:   plots,
		LocT:  req.LocationType,
		LocI:  req.LocationInstance,
	}
	w, err = o.store.SaveWorld(ctx, w)
	if err != nil {
		return w, err
	}
	o.log.WithFields(logrus.Fields{
		"world": w.World,
		"plots": len(w.Loc),
		"locT":  w.LocT,
	}).Info("spawned world structure")
	o.writeAudit(log.SpawnRecord{
		Kind: "world", ID: w.World,
		Loc: w.Loc, LocT: string(w.LocT), LocI: w.LocI,
	})
	return w, nil
}

// IsTraversable reports whether every cell has a walkable biome and no
// collider occupies any of them.
func (o *Orchestrator) IsTraversable(ctx context.Context, cells []string, locT settings.LocationType, locI string) (bool, error) {
	for _, cell := range cells {
		biome, _, err := o.biomes.BiomeAt(cell, locT)
		if err != nil {
			return false, err
		}
		if settings.TraversableSpeed(biome) <= 0 {
			return false, nil
		}
	}
	n, err := o.store.CollidersInGeohash(ctx, cells, locT, locI)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// CanSpawnMonstersAt climbs the precision tiers from the cell up to the
// continent; a full tier anywhere on the way vetoes the spawn.
func (o *Orchestrator) CanSpawnMonstersAt(ctx context.Context, cell string, locT settings.LocationType, locI string) (bool, error) {
	for len(cell) > 0 {
		tier, ok := settings.TierAtPrecision(len(cell))
		if !ok {
			return false, nil
		}
		n, err := o.store.CountMonsters(ctx, []string{cell}, locT, locI)
		if err != nil {
			return false, err
		}
		if n >= o.limit(tier) {
			return false, nil
		}
		if tier == settings.TierContinent {
			return true, nil
		}
		cell = cell[:len(cell)-1]
	}
	return false, nil
}

func applyStats(m *store.MonsterEntity) {
	total := 0
	for _, lvl := range m.Skills {
		total += lvl
	}
	m.HP = 10 + 4*total
	m.Mnd = 1 + total/2
	m.Cha = 1 + total/2
	m.Lum = 0
	m.Umb = 0
}

func (o *Orchestrator) writeAudit(rec log.SpawnRecord) {
	if o.audit == nil {
		return
	}
	rec.At = o.now().UTC()
	if err := o.audit.WriteSpawn(rec); err != nil {
		o.log.WithError(err).Warn("spawn audit write failed")
	}
}
