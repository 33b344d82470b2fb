package scenario

import (
	"fmt"

	"github.com/kilianp07/battsim/core/telemetry"
)

// Entry is one simulation of a scenario file. Non-zero fields override the
// named preset.
type Entry struct {
	Preset           string `json:"preset,omitempty" yaml:"preset,omitempty"`
	telemetry.Config `json:",squash" yaml:",inline" mapstructure:",squash"`
}

// File is the top-level document of a scenario file.
type File struct {
	Simulations []Entry `json:"simulations" yaml:"simulations"`
}

// Resolve merges the entry onto its preset and validates the result.
func (e Entry) Resolve() (telemetry.Config, error) {
	cfg := e.Config
	if e.Preset != "" {
		base, err := Preset(e.Preset)
		if err != nil {
			return telemetry.Config{}, err
		}
		cfg = merge(base, e.Config)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return telemetry.Config{}, fmt.Errorf("simulation %q: %w", cfg.Name, err)
	}
	return cfg, nil
}

func merge(base, over telemetry.Config) telemetry.Config {
	if over.Name != "" {
		base.Name = over.Name
	}
	if over.IntervalMS != 0 {
		base.IntervalMS = over.IntervalMS
	}
	if over.Capacity != 0 {
		base.Capacity = over.Capacity
	}
	if over.TimestampLayout != "" {
		base.TimestampLayout = over.TimestampLayout
	}
	if over.Seed != 0 {
		base.Seed = over.Seed
	}
	if len(over.Channels) > 0 {
		base.Channels = over.Channels
	}
	if over.Anomaly != nil {
		base.Anomaly = over.Anomaly
	}
	if len(over.Derived) > 0 {
		base.Derived = over.Derived
	}
	return base
}

// ResolveAll resolves every entry and rejects duplicate simulation names.
func ResolveAll(entries []Entry) ([]telemetry.Config, error) {
	out := make([]telemetry.Config, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		cfg, err := e.Resolve()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if cfg.Name == "" {
			return nil, fmt.Errorf("entry %d: simulation has no name", i)
		}
		if _, dup := seen[cfg.Name]; dup {
			return nil, fmt.Errorf("entry %d: duplicate simulation %q", i, cfg.Name)
		}
		seen[cfg.Name] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}
