package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"crossover.world/internal/sim/settings"
)

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	got, err := Load(writeTuning(t, `
terrain_seed: winter
respawn_interval_s: 30
monster_limits:
  plot: 4
observer:
  send_buffer: 64
`))
	if err != nil {
		t.Fatal(err)
	}
	if got.TerrainSeed != "winter" || got.RespawnIntervalS != 30 {
		t.Fatalf("got %+v", got)
	}
	// Unset fields keep their defaults.
	if got.Observer.WriteTimeoutMs != 5000 {
		t.Fatalf("write timeout = %d", got.Observer.WriteTimeoutMs)
	}

	limit := got.LimitFunc()
	if limit(settings.TierPlot) != 4 {
		t.Fatalf("plot cap = %d", limit(settings.TierPlot))
	}
	if limit(settings.TierTown) != settings.MonsterLimit(settings.TierTown) {
		t.Fatal("unlisted tier lost its default")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(writeTuning(t, "monster_limits:\n  hamlet: 3\n")); err == nil {
		t.Fatal("unknown tier accepted")
	}
	if _, err := Load(writeTuning(t, "respawn_interval_s: 0\n")); err == nil {
		t.Fatal("zero respawn interval accepted")
	}
	if _, err := Load(writeTuning(t, "monster_limits:\n  town: -1\n")); err == nil {
		t.Fatal("negative cap accepted")
	}
}

func TestLoadShippedConfig(t *testing.T) {
	got, err := Load("../../configs/tuning.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if got.RespawnIntervalS <= 0 {
		t.Fatalf("got %+v", got)
	}
}
