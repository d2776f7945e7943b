package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	persistlog "crossover.world/internal/persistence/log"
	"crossover.world/internal/sim/catalogs"
	"crossover.world/internal/sim/dungeon"
	"crossover.world/internal/spawn"
	"crossover.world/internal/store"
	"crossover.world/internal/transport/ws"
	"crossover.world/internal/tuning"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "world_1", "world id")
		configDir  = flag.String("configs", "./configs", "config directory")
		schemaDir  = flag.String("schemas", "./schemas", "schema directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dbPath     = flag.String("db", "", "sqlite entity store path (default: <data>/worlds/<world>/entities.db; 'memory' for in-memory)")
		noRespawn  = flag.Bool("no_respawn", false, "disable the periodic respawn sweep")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cats, err := catalogs.Load(*configDir, *schemaDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"bestiary":   len(cats.Bestiary),
		"compendium": len(cats.Compendium),
		"dungeons":   len(cats.Dungeons),
	}).Info("catalogs loaded")

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	_ = os.MkdirAll(worldDir, 0o755)

	var entities store.EntityStore
	switch db := strings.TrimSpace(*dbPath); db {
	case "memory":
		entities = store.NewMemory()
	case "":
		s, err := store.OpenSQLite(filepath.Join(worldDir, "entities.db"))
		if err != nil {
			logger.Fatalf("open entity store: %v", err)
		}
		defer s.Close()
		entities = s
	default:
		s, err := store.OpenSQLite(db)
		if err != nil {
			logger.Fatalf("open entity store: %v", err)
		}
		defer s.Close()
		entities = s
	}

	audit := persistlog.NewSpawnLogger(worldDir)
	defer audit.Close()

	biomes := dungeon.NewResolver(
		dungeon.NewMemoryCache(),
		cats,
		dungeon.DefaultTerrain{Seed: tune.TerrainSeed},
	)

	orch := spawn.New(spawn.Config{
		Store:    entities,
		Catalogs: cats,
		Biomes:   biomes,
		Audit:    audit,
		Logger:   logger,
		Limit:    tune.LimitFunc(),
	})

	hub := ws.NewHub(
		logger,
		tune.Observer.SendBuffer,
		time.Duration(tune.Observer.WriteTimeoutMs)*time.Millisecond,
		func() any {
			return map[string]any{
				"type":              "welcome",
				"world":             *worldID,
				"bestiary_digest":   cats.BestiaryDigest,
				"compendium_digest": cats.CompendiumDigest,
				"dungeons_digest":   cats.DungeonsDigest,
			}
		},
	)
	defer hub.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if !*noRespawn {
		go respawnLoop(ctx, orch, hub, logger, time.Duration(tune.RespawnIntervalS)*time.Second)
	}

	a := &api{
		orch:    orch,
		biomes:  biomes,
		store:   entities,
		cats:    cats,
		hub:     hub,
		log:     logger,
		worldID: *worldID,
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Infof("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

// respawnLoop tops up the monster population on a fixed cadence. Each sweep
// gets a fresh seed so consecutive sweeps vary placement.
func respawnLoop(ctx context.Context, orch *spawn.Orchestrator, hub *ws.Hub, logger *logrus.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			spawned, err := orch.RespawnMonsters(ctx, spawn.RespawnOptions{
				Seed: uint64(time.Now().UnixNano()),
			})
			if err != nil {
				logger.WithError(err).Warn("respawn sweep failed")
				continue
			}
			if len(spawned) > 0 {
				logger.WithField("spawned", spawned).Info("respawn sweep")
				hub.Broadcast(map[string]any{"type": "respawn", "spawned": spawned})
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
