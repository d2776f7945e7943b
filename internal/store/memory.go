package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"crossover.world/internal/sim/geohash"
	"crossover.world/internal/sim/settings"
)

// Memory is the in-memory EntityStore used by tests and cache-free dev runs.
type Memory struct {
	mu       sync.RWMutex
	monsters map[string]MonsterEntity
	items    map[string]ItemEntity
	worlds   map[string]WorldEntity
	players  map[string]PlayerEntity
}

func NewMemory() *Memory {
	return &Memory{
		monsters: map[string]MonsterEntity{},
		items:    map[string]ItemEntity{},
		worlds:   map[string]WorldEntity{},
		players:  map[string]PlayerEntity{},
	}
}

func matchesPrefix(loc []string, prefixes []string) bool {
	for _, cell := range loc {
		for _, p := range prefixes {
			if strings.HasPrefix(cell, p) {
				return true
			}
		}
	}
	return false
}

func (s *Memory) SaveMonster(_ context.Context, m MonsterEntity) (MonsterEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monsters[m.Monster] = m
	return m, nil
}

func (s *Memory) GetMonster(_ context.Context, id string) (MonsterEntity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.monsters[id]
	return m, ok, nil
}

func (s *Memory) DeleteMonster(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.monsters, id)
	return nil
}

func (s *Memory) CountMonsters(_ context.Context, prefixes []string, locT settings.LocationType, locI string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, m := range s.monsters {
		if m.LocT == locT && m.LocI == locI && matchesPrefix(m.Loc, prefixes) {
			n++
		}
	}
	return n, nil
}

func (s *Memory) MonstersTotal(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.monsters), nil
}

func (s *Memory) SaveItem(_ context.Context, it ItemEntity) (ItemEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.Item] = it
	return it, nil
}

func (s *Memory) GetItem(_ context.Context, id string) (ItemEntity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	return it, ok, nil
}

func (s *Memory) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *Memory) ItemsInGeohash(_ context.Context, prefixes []string, locT settings.LocationType, locI string) ([]ItemEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ItemEntity
	for _, it := range s.items {
		if it.LocT == locT && it.LocI == locI && matchesPrefix(it.Loc, prefixes) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out, nil
}

func (s *Memory) CollidersInGeohash(ctx context.Context, cells []string, locT settings.LocationType, locI string) (int, error) {
	items, err := s.ItemsInGeohash(ctx, cells, locT, locI)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, it := range items {
		if it.Collider {
			n++
		}
	}
	return n, nil
}

func (s *Memory) ItemsTotal(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}

func (s *Memory) SaveWorld(_ context.Context, w WorldEntity) (WorldEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worlds[w.World] = w
	return w, nil
}

func (s *Memory) GetWorld(_ context.Context, id string) (WorldEntity, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.worlds[id]
	return w, ok, nil
}

func (s *Memory) WorldsContainingGeohash(_ context.Context, cells []string, locT settings.LocationType) ([]WorldEntity, error) {
	expanded, err := geohash.Expand(cells, settings.Precision(settings.TierTown))
	if err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(expanded))
	for _, e := range expanded {
		want[e] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []WorldEntity
	for _, w := range s.worlds {
		if w.LocT != locT {
			continue
		}
		for _, cell := range w.Loc {
			if _, ok := want[cell]; ok {
				out = append(out, w)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].World < out[j].World })
	return out, nil
}

func (s *Memory) WorldsTotal(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.worlds), nil
}

func (s *Memory) SavePlayer(_ context.Context, p PlayerEntity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.Player] = p
	return nil
}

func (s *Memory) LoggedInPlayers(_ context.Context, locI string, ids []string) ([]PlayerEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := map[string]struct{}{}
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var out []PlayerEntity
	for _, p := range s.players {
		if !p.LoggedIn || p.LocI != locI {
			continue
		}
		if len(wanted) > 0 {
			if _, ok := wanted[p.Player]; !ok {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out, nil
}
