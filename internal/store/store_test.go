package store

import (
	"context"
	"path/filepath"
	"testing"

	"crossover.world/internal/sim/settings"
)

func eachStore(t *testing.T, fn func(t *testing.T, s EntityStore)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemory())
	})
	t.Run("sqlite", func(t *testing.T) {
		s, err := OpenSQLite(filepath.Join(t.TempDir(), "world.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		defer s.Close()
		fn(t, s)
	})
}

func TestMonsterRoundTrip(t *testing.T) {
	eachStore(t, func(t *testing.T, s EntityStore) {
		ctx := context.Background()
		m := MonsterEntity{
			Monster: "monster_goblin1_1234",
			Name:    "goblin",
			Beast:   "goblin",
			Loc:     []string{"w21z3wcm"},
			LocT:    settings.LocationSurface,
			LocI:    settings.DefaultInstance,
			HP:      10,
			Skills:  map[string]int{"dirtblock": 2},
		}
		if _, err := s.SaveMonster(ctx, m); err != nil {
			t.Fatal(err)
		}
		got, ok, err := s.GetMonster(ctx, m.Monster)
		if err != nil || !ok {
			t.Fatalf("get = %v ok=%v", err, ok)
		}
		if got.Beast != "goblin" || got.Skills["dirtblock"] != 2 {
			t.Fatalf("got %+v", got)
		}
		if _, ok, _ := s.GetMonster(ctx, "monster_nobody"); ok {
			t.Fatal("phantom monster")
		}
		if err := s.DeleteMonster(ctx, m.Monster); err != nil {
			t.Fatal(err)
		}
		if _, ok, _ := s.GetMonster(ctx, m.Monster); ok {
			t.Fatal("monster survived delete")
		}
	})
}

func TestCountMonstersPrefixContainment(t *testing.T) {
	eachStore(t, func(t *testing.T, s EntityStore) {
		ctx := context.Background()
		save := func(id, cell string, locT settings.LocationType) {
			if _, err := s.SaveMonster(ctx, MonsterEntity{
				Monster: id, Beast: "goblin",
				Loc: []string{cell}, LocT: locT, LocI: settings.DefaultInstance,
			}); err != nil {
				t.Fatal(err)
			}
		}
		save("monster_a", "w21z3wcm", settings.LocationSurface)
		save("monster_b", "w21z3abc", settings.LocationSurface)
		save("monster_c", "w21z9def", settings.LocationSurface)
		save("monster_d", "w21z3wcm", settings.LocationDungeon1)

		cases := []struct {
			prefixes []string
			locT     settings.LocationType
			want     int
		}{
			{[]string{"w21z3"}, settings.LocationSurface, 2},
			{[]string{"w21z"}, settings.LocationSurface, 3},
			{[]string{"w21z3wcm"}, settings.LocationSurface, 1},
			{[]string{"w21z3wcm"}, settings.LocationDungeon1, 1},
			{[]string{"9q"}, settings.LocationSurface, 0},
			{[]string{"w21z3", "w21z9"}, settings.LocationSurface, 3},
		}
		for _, c := range cases {
			n, err := s.CountMonsters(ctx, c.prefixes, c.locT, settings.DefaultInstance)
			if err != nil {
				t.Fatal(err)
			}
			if n != c.want {
				t.Fatalf("count(%v, %s) = %d, want %d", c.prefixes, c.locT, n, c.want)
			}
		}
		total, err := s.MonstersTotal(ctx)
		if err != nil || total != 4 {
			t.Fatalf("total = %d err=%v", total, err)
		}
	})
}

func TestItemsAndColliders(t *testing.T) {
	eachStore(t, func(t *testing.T, s EntityStore) {
		ctx := context.Background()
		door := ItemEntity{
			Item: "item_woodendoor_1", Name: "Wooden Door", Prop: "woodendoor",
			Loc: []string{"w21z3wcm"}, LocT: settings.LocationSurface,
			LocI: settings.DefaultInstance, Collider: true, State: "default",
			Vars: map[string]any{"doorsign": "inn"},
		}
		potion := ItemEntity{
			Item: "item_potionofhealth_2", Prop: "potionofhealth",
			Loc: []string{"w21z3wcm"}, LocT: settings.LocationSurface,
			LocI: settings.DefaultInstance, State: "default",
		}
		for _, it := range []ItemEntity{door, potion} {
			if _, err := s.SaveItem(ctx, it); err != nil {
				t.Fatal(err)
			}
		}

		items, err := s.ItemsInGeohash(ctx, []string{"w21z3wcm"}, settings.LocationSurface, settings.DefaultInstance)
		if err != nil {
			t.Fatal(err)
		}
		if len(items) != 2 {
			t.Fatalf("items = %d", len(items))
		}
		if items[0].Item > items[1].Item {
			t.Fatal("items not sorted by id")
		}
		got, ok, err := s.GetItem(ctx, door.Item)
		if err != nil || !ok {
			t.Fatalf("get item: %v ok=%v", err, ok)
		}
		if got.Vars["doorsign"] != "inn" {
			t.Fatalf("vars = %+v", got.Vars)
		}

		n, err := s.CollidersInGeohash(ctx, []string{"w21z3wcm"}, settings.LocationSurface, settings.DefaultInstance)
		if err != nil || n != 1 {
			t.Fatalf("colliders = %d err=%v", n, err)
		}
		n, err = s.CollidersInGeohash(ctx, []string{"w21z3wct"}, settings.LocationSurface, settings.DefaultInstance)
		if err != nil || n != 0 {
			t.Fatalf("colliders off-cell = %d err=%v", n, err)
		}

		if err := s.DeleteItem(ctx, door.Item); err != nil {
			t.Fatal(err)
		}
		n, err = s.CollidersInGeohash(ctx, []string{"w21z3wcm"}, settings.LocationSurface, settings.DefaultInstance)
		if err != nil || n != 0 {
			t.Fatalf("colliders after delete = %d err=%v", n, err)
		}
	})
}

func TestWorldsContainingGeohash(t *testing.T) {
	eachStore(t, func(t *testing.T, s EntityStore) {
		ctx := context.Background()
		// A world anchored on two plot cells.
		w := WorldEntity{
			World: "world_tavern_1",
			URL:   "https://assets.example.com/tavern.json",
			Loc:   []string{"w21z3wc", "w21z3wf"},
			LocT:  settings.LocationSurface,
			LocI:  settings.DefaultInstance,
		}
		if _, err := s.SaveWorld(ctx, w); err != nil {
			t.Fatal(err)
		}

		// A unit cell inside the first plot matches via prefix expansion.
		got, err := s.WorldsContainingGeohash(ctx, []string{"w21z3wcm"}, settings.LocationSurface)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].World != w.World {
			t.Fatalf("got %+v", got)
		}

		// A cell outside either plot does not.
		got, err = s.WorldsContainingGeohash(ctx, []string{"w21z9abc"}, settings.LocationSurface)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Fatalf("got %+v", got)
		}

		if _, ok, _ := s.GetWorld(ctx, w.World); !ok {
			t.Fatal("world not found by id")
		}
		total, err := s.WorldsTotal(ctx)
		if err != nil || total != 1 {
			t.Fatalf("total = %d err=%v", total, err)
		}
	})
}

func TestLoggedInPlayers(t *testing.T) {
	eachStore(t, func(t *testing.T, s EntityStore) {
		ctx := context.Background()
		save := func(id string, loggedIn bool, locI string) {
			if err := s.SavePlayer(ctx, PlayerEntity{
				Player: id, Loc: []string{"w21z3wcm"},
				LocT: settings.LocationSurface, LocI: locI, LoggedIn: loggedIn,
			}); err != nil {
				t.Fatal(err)
			}
		}
		save("player_a", true, settings.DefaultInstance)
		save("player_b", false, settings.DefaultInstance)
		save("player_c", true, "quest_1")

		players, err := s.LoggedInPlayers(ctx, settings.DefaultInstance, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(players) != 1 || players[0].Player != "player_a" {
			t.Fatalf("players = %+v", players)
		}

		players, err = s.LoggedInPlayers(ctx, settings.DefaultInstance, []string{"player_b"})
		if err != nil {
			t.Fatal(err)
		}
		if len(players) != 0 {
			t.Fatalf("logged-out player returned: %+v", players)
		}
	})
}

func TestSaveMonsterReplaces(t *testing.T) {
	eachStore(t, func(t *testing.T, s EntityStore) {
		ctx := context.Background()
		m := MonsterEntity{
			Monster: "monster_dragon_x", Beast: "dragon",
			Loc:  []string{"w21z3wcm", "w21z3wct"},
			LocT: settings.LocationSurface, LocI: settings.DefaultInstance,
		}
		if _, err := s.SaveMonster(ctx, m); err != nil {
			t.Fatal(err)
		}
		m.Loc = []string{"w21z9def"}
		if _, err := s.SaveMonster(ctx, m); err != nil {
			t.Fatal(err)
		}
		n, err := s.CountMonsters(ctx, []string{"w21z3"}, settings.LocationSurface, settings.DefaultInstance)
		if err != nil || n != 0 {
			t.Fatalf("stale cells still counted: n=%d err=%v", n, err)
		}
		n, err = s.CountMonsters(ctx, []string{"w21z9"}, settings.LocationSurface, settings.DefaultInstance)
		if err != nil || n != 1 {
			t.Fatalf("n=%d err=%v", n, err)
		}
		total, _ := s.MonstersTotal(ctx)
		if total != 1 {
			t.Fatalf("total = %d", total)
		}
	})
}
