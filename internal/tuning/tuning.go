// Package tuning holds the operator-adjustable knobs, loaded from
// tuning.yaml at startup. Anything a designer balances between deploys
// belongs here; fixed world constants live in internal/sim/settings.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"crossover.world/internal/sim/settings"
)

type Tuning struct {
	TerrainSeed      string `yaml:"terrain_seed"`
	RespawnIntervalS int    `yaml:"respawn_interval_s"`

	// MonsterLimits overrides the default per-tier population caps, keyed
	// by tier name.
	MonsterLimits map[string]int `yaml:"monster_limits"`

	Observer Observer `yaml:"observer"`
}

type Observer struct {
	SendBuffer     int `yaml:"send_buffer"`
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
}

func Defaults() Tuning {
	return Tuning{
		TerrainSeed:      "main",
		RespawnIntervalS: 60,
		Observer: Observer{
			SendBuffer:     256,
			WriteTimeoutMs: 5000,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	for tier, limit := range t.MonsterLimits {
		if settings.Precision(settings.Tier(tier)) == 0 {
			return t, fmt.Errorf("tuning.yaml: unknown tier %q in monster_limits", tier)
		}
		if limit < 0 {
			return t, fmt.Errorf("tuning.yaml: negative cap for tier %q", tier)
		}
	}
	if t.RespawnIntervalS <= 0 {
		return t, fmt.Errorf("tuning.yaml: respawn_interval_s must be positive")
	}
	return t, nil
}

// LimitFunc overlays the tuned caps on the built-in defaults.
func (t Tuning) LimitFunc() func(settings.Tier) int {
	if len(t.MonsterLimits) == 0 {
		return settings.MonsterLimit
	}
	overrides := make(map[settings.Tier]int, len(t.MonsterLimits))
	for tier, limit := range t.MonsterLimits {
		overrides[settings.Tier(tier)] = limit
	}
	return func(tier settings.Tier) int {
		if limit, ok := overrides[tier]; ok {
			return limit
		}
		return settings.MonsterLimit(tier)
	}
}
