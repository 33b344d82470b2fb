package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/battsim/core/metrics"
	"github.com/kilianp07/battsim/core/scenario"
	"github.com/kilianp07/battsim/core/station"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/infra/mqtt"
)

type Config struct {
	Simulations []scenario.Entry `json:"simulations"`
	Station     station.Config   `json:"station"`
	MQTT        mqtt.Config      `json:"mqtt"`
	Metrics     metrics.Config   `json:"metrics"`
	HTTP        HTTPConfig       `json:"http"`
	Logging     LoggingConfig    `json:"logging"`
}

// Load reads the YAML or JSON file at path, applies K_ environment
// overrides (K_MQTT__BROKER sets mqtt.broker) and validates the result. An
// empty path loads the defaults and the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section. Without simulations and without a
// station the car preset runs.
func (c *Config) SetDefaults() {
	if len(c.Simulations) == 0 && !c.Station.Enabled {
		c.Simulations = []scenario.Entry{{Preset: scenario.PresetCar}}
	}
	c.Station.SetDefaults()
	c.MQTT.SetDefaults()
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	sims, err := c.Resolve()
	if err != nil {
		return err
	}
	if c.Station.Enabled {
		if err := c.Station.Validate(); err != nil {
			return err
		}
		for _, s := range sims {
			if s.Name == c.Station.Name {
				return fmt.Errorf("simulation %q clashes with the station name", s.Name)
			}
		}
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics.sinks[%d]: type is required", i)
		}
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// Resolve returns the validated simulation configurations.
func (c Config) Resolve() ([]telemetry.Config, error) {
	return scenario.ResolveAll(c.Simulations)
}
