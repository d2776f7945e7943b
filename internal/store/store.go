// Package store defines the persistent entity store the spatial engine
// writes into. The engine treats it as a capability: keyed get/set/delete
// plus prefix-containment queries over location cells. Two implementations
// ship, a sqlite-backed one for servers and an in-memory one for tests.
package store

import (
	"context"
	"errors"

	"crossover.world/internal/sim/settings"
)

// ErrUnavailable wraps every backend failure so callers can distinguish
// "the store is down" from domain errors. Retry policy belongs to callers.
var ErrUnavailable = errors.New("entity store unavailable")

// MonsterEntity is one live monster. Written once at spawn; gameplay systems
// own every later mutation.
type MonsterEntity struct {
	Monster string                `json:"monster"`
	Name    string                `json:"name"`
	Beast   string                `json:"beast"`
	Loc     []string              `json:"loc"`
	LocT    settings.LocationType `json:"locT"`
	LocI    string                `json:"locI"`
	HP      int                   `json:"hp"`
	Mnd     int                   `json:"mnd"`
	Cha     int                   `json:"cha"`
	Lum     int                   `json:"lum"`
	Umb     int                   `json:"umb"`
	Skills  map[string]int        `json:"skills,omitempty"`
}

// ItemEntity is one item or static structure instance.
type ItemEntity struct {
	Item        string                `json:"item"`
	Name        string                `json:"name"`
	Prop        string                `json:"prop"`
	Loc         []string              `json:"loc"`
	LocT        settings.LocationType `json:"locT"`
	LocI        string                `json:"locI"`
	Owner       string                `json:"own"`
	ConfigOwner string                `json:"cfg"`
	Collider    bool                  `json:"cld"`
	Durability  int                   `json:"dur"`
	Charges     int                   `json:"chg"`
	State       string                `json:"state"`
	Vars        map[string]any        `json:"vars,omitempty"`
}

// WorldEntity is a multi-plot world structure (a tiled building or set
// piece) anchored to plot cells.
type WorldEntity struct {
	World string                `json:"world"`
	URL   string                `json:"url"`
	Loc   []string              `json:"loc"`
	LocT  settings.LocationType `json:"locT"`
	LocI  string                `json:"locI"`
}

// PlayerEntity is the slice of player state the engine reads: where logged-in
// players are, so respawning happens at the periphery of their activity.
type PlayerEntity struct {
	Player   string                `json:"player"`
	Name     string                `json:"name"`
	Loc      []string              `json:"loc"`
	LocT     settings.LocationType `json:"locT"`
	LocI     string                `json:"locI"`
	LoggedIn bool                  `json:"lgn"`
}

// EntityStore is the engine's only shared mutable resource. Prefix arguments
// follow "contains one of" semantics: an entity matches when any of its loc
// cells extends any of the given prefixes.
type EntityStore interface {
	SaveMonster(ctx context.Context, m MonsterEntity) (MonsterEntity, error)
	GetMonster(ctx context.Context, id string) (MonsterEntity, bool, error)
	DeleteMonster(ctx context.Context, id string) error
	CountMonsters(ctx context.Context, prefixes []string, locT settings.LocationType, locI string) (int, error)
	MonstersTotal(ctx context.Context) (int, error)

	SaveItem(ctx context.Context, it ItemEntity) (ItemEntity, error)
	GetItem(ctx context.Context, id string) (ItemEntity, bool, error)
	DeleteItem(ctx context.Context, id string) error
	ItemsInGeohash(ctx context.Context, prefixes []string, locT settings.LocationType, locI string) ([]ItemEntity, error)
	// CollidersInGeohash counts collidable items occupying any of the cells.
	CollidersInGeohash(ctx context.Context, cells []string, locT settings.LocationType, locI string) (int, error)
	ItemsTotal(ctx context.Context) (int, error)

	SaveWorld(ctx context.Context, w WorldEntity) (WorldEntity, error)
	GetWorld(ctx context.Context, id string) (WorldEntity, bool, error)
	// WorldsContainingGeohash returns worlds whose footprint contains any of
	// the cells: a world matches when one of its loc cells is a prefix of a
	// queried cell (down to town precision).
	WorldsContainingGeohash(ctx context.Context, cells []string, locT settings.LocationType) ([]WorldEntity, error)
	WorldsTotal(ctx context.Context) (int, error)

	SavePlayer(ctx context.Context, p PlayerEntity) error
	// LoggedInPlayers returns logged-in players in a location instance,
	// optionally restricted to the given player ids.
	LoggedInPlayers(ctx context.Context, locI string, ids []string) ([]PlayerEntity, error)
}
