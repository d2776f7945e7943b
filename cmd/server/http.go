package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"crossover.world/internal/sim/catalogs"
	"crossover.world/internal/sim/dungeon"
	"crossover.world/internal/sim/geohash"
	"crossover.world/internal/sim/settings"
	"crossover.world/internal/spawn"
	"crossover.world/internal/store"
	"crossover.world/internal/transport/ws"
)

type api struct {
	orch    *spawn.Orchestrator
	biomes  *dungeon.Resolver
	store   store.EntityStore
	cats    *catalogs.Catalogs
	hub     *ws.Hub
	log     *logrus.Logger
	worldID string
}

func (a *api) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/v1/dungeon", a.handleDungeon)
	mux.HandleFunc("/v1/biome", a.handleBiome)
	mux.HandleFunc("/v1/spawn/monster", a.handleSpawnMonster)
	mux.HandleFunc("/v1/spawn/item", a.handleSpawnItem)
	mux.HandleFunc("/v1/spawn/world", a.handleSpawnWorld)
	mux.HandleFunc("/v1/respawn", a.handleRespawn)
	mux.HandleFunc("/v1/ws", a.hub.Handler())
	return mux
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var blocked *spawn.BlockedError
	var overlap *spawn.OverlapError
	var parse *geohash.ParseError
	switch {
	case errors.Is(err, spawn.ErrTemplateNotFound):
		status = http.StatusNotFound
	case errors.Is(err, spawn.ErrNotGeohashLocation):
		status = http.StatusBadRequest
	case errors.As(err, &blocked), errors.As(err, &overlap):
		status = http.StatusConflict
	case errors.As(err, &parse):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(rw, status, map[string]string{"error": err.Error()})
}

func locationType(r *http.Request, def settings.LocationType) settings.LocationType {
	if v := r.URL.Query().Get("locT"); v != "" {
		return settings.LocationType(v)
	}
	return def
}

type dungeonResponse struct {
	Territory         string                `json:"territory"`
	LocationType      settings.LocationType `json:"locationType"`
	CorridorPrecision int                   `json:"corridorPrecision"`
	Rooms             []*dungeon.Room       `json:"rooms"`
	Corridors         []string              `json:"corridors"`
	Entrances         []string              `json:"entrances"`
}

func (a *api) handleDungeon(rw http.ResponseWriter, r *http.Request) {
	territory := r.URL.Query().Get("territory")
	locT := locationType(r, settings.LocationDungeon1)
	g, err := a.biomes.Graph(territory, locT)
	if err != nil {
		writeError(rw, err)
		return
	}
	corridors := make([]string, 0, len(g.Corridors))
	for c := range g.Corridors {
		corridors = append(corridors, c)
	}
	sort.Strings(corridors)
	writeJSON(rw, http.StatusOK, dungeonResponse{
		Territory:         g.Territory,
		LocationType:      g.LocationType,
		CorridorPrecision: g.CorridorPrecision,
		Rooms:             g.Rooms,
		Corridors:         corridors,
		Entrances:         g.Entrances(),
	})
}

func (a *api) handleBiome(rw http.ResponseWriter, r *http.Request) {
	cell := r.URL.Query().Get("cell")
	locT := locationType(r, settings.LocationSurface)
	if err := geohash.Validate(cell); err != nil {
		writeError(rw, err)
		return
	}
	biome, strength, err := a.biomes.BiomeAt(cell, locT)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"cell":     cell,
		"locT":     locT,
		"biome":    biome,
		"strength": strength,
		"speed":    settings.TraversableSpeed(biome),
	})
}

type spawnMonsterRequest struct {
	Geohash          string                `json:"geohash"`
	LocationType     settings.LocationType `json:"locationType"`
	LocationInstance string                `json:"locationInstance"`
	Beast            string                `json:"beast"`
	AdditionalSkills map[string]int        `json:"additionalSkills"`
	UniqueSuffix     string                `json:"uniqueSuffix"`
}

func (a *api) handleSpawnMonster(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req spawnMonsterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, err := a.orch.SpawnMonster(r.Context(), spawn.MonsterSpawn{
		Geohash:          req.Geohash,
		LocationType:     req.LocationType,
		LocationInstance: req.LocationInstance,
		Beast:            req.Beast,
		AdditionalSkills: req.AdditionalSkills,
		UniqueSuffix:     req.UniqueSuffix,
	})
	if err != nil {
		writeError(rw, err)
		return
	}
	a.hub.Broadcast(map[string]any{"type": "spawn", "kind": "monster", "monster": m})
	writeJSON(rw, http.StatusCreated, m)
}

type spawnItemRequest struct {
	Geohash                  string                `json:"geohash"`
	LocationType             settings.LocationType `json:"locationType"`
	LocationInstance         string                `json:"locationInstance"`
	Prop                     string                `json:"prop"`
	Owner                    string                `json:"owner"`
	ConfigOwner              string                `json:"configOwner"`
	Variables                map[string]any        `json:"variables"`
	IgnoreCollider           bool                  `json:"ignoreCollider"`
	DestroyCollidingEntities bool                  `json:"destroyCollidingEntities"`
	UniqueSuffix             string                `json:"uniqueSuffix"`
	// Holder places the item in an entity's inventory instead of the grid.
	Holder string `json:"holder"`
}

func (a *api) handleSpawnItem(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req spawnItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var it store.ItemEntity
	var err error
	if req.Holder != "" {
		it, err = a.orch.SpawnItemInInventory(r.Context(), req.Holder, req.Prop, req.Variables, req.Owner, req.ConfigOwner)
	} else {
		it, err = a.orch.SpawnItemAtGeohash(r.Context(), spawn.ItemSpawn{
			Geohash:                  req.Geohash,
			LocationType:             req.LocationType,
			LocationInstance:         req.LocationInstance,
			Prop:                     req.Prop,
			Owner:                    req.Owner,
			ConfigOwner:              req.ConfigOwner,
			Variables:                req.Variables,
			IgnoreCollider:           req.IgnoreCollider,
			DestroyCollidingEntities: req.DestroyCollidingEntities,
			UniqueSuffix:             req.UniqueSuffix,
		})
	}
	if err != nil {
		writeError(rw, err)
		return
	}
	a.hub.Broadcast(map[string]any{"type": "spawn", "kind": "item", "item": it})
	writeJSON(rw, http.StatusCreated, it)
}

type spawnWorldRequest struct {
	World            string                `json:"world"`
	Geohash          string                `json:"geohash"`
	LocationType     settings.LocationType `json:"locationType"`
	LocationInstance string                `json:"locationInstance"`
	AssetURL         string                `json:"assetUrl"`
	Rows             int                   `json:"rows"`
	Cols             int                   `json:"cols"`
}

func (a *api) handleSpawnWorld(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req spawnWorldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w, err := a.orch.SpawnWorldStructure(r.Context(), spawn.WorldSpawn{
		World:            req.World,
		Geohash:          req.Geohash,
		LocationType:     req.LocationType,
		LocationInstance: req.LocationInstance,
		AssetURL:         req.AssetURL,
		Rows:             req.Rows,
		Cols:             req.Cols,
	})
	if err != nil {
		writeError(rw, err)
		return
	}
	a.hub.Broadcast(map[string]any{"type": "spawn", "kind": "world", "world": w})
	writeJSON(rw, http.StatusCreated, w)
}

type respawnRequest struct {
	Players          []string `json:"players"`
	LocationInstance string   `json:"locationInstance"`
}

func (a *api) handleRespawn(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req respawnRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(rw, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
	}
	spawned, err := a.orch.RespawnMonsters(r.Context(), spawn.RespawnOptions{
		Players:          req.Players,
		LocationInstance: req.LocationInstance,
		Seed:             uint64(time.Now().UnixNano()),
	})
	if err != nil {
		writeError(rw, err)
		return
	}
	a.hub.Broadcast(map[string]any{"type": "respawn", "spawned": spawned})
	writeJSON(rw, http.StatusOK, map[string]any{"spawned": spawned})
}

func (a *api) handleMetrics(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

	monsters, _ := a.store.MonstersTotal(r.Context())
	items, _ := a.store.ItemsTotal(r.Context())
	worlds, _ := a.store.WorldsTotal(r.Context())

	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP crossover_monsters_total Live monster count.\n")
	fmt.Fprintf(rw, "# TYPE crossover_monsters_total gauge\n")
	fmt.Fprintf(rw, "crossover_monsters_total{world=%q} %d\n", a.worldID, monsters)

	fmt.Fprintf(rw, "# HELP crossover_items_total Live item count.\n")
	fmt.Fprintf(rw, "# TYPE crossover_items_total gauge\n")
	fmt.Fprintf(rw, "crossover_items_total{world=%q} %d\n", a.worldID, items)

	fmt.Fprintf(rw, "# HELP crossover_worlds_total World structure count.\n")
	fmt.Fprintf(rw, "# TYPE crossover_worlds_total gauge\n")
	fmt.Fprintf(rw, "crossover_worlds_total{world=%q} %d\n", a.worldID, worlds)

	fmt.Fprintf(rw, "# HELP crossover_observers Connected observer clients.\n")
	fmt.Fprintf(rw, "# TYPE crossover_observers gauge\n")
	fmt.Fprintf(rw, "crossover_observers{world=%q} %d\n", a.worldID, a.hub.Clients())
}
