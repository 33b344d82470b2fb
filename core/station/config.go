package station

import (
	"fmt"
	"strconv"
)

// Default station parameters reproduce the charging-station screen.
const (
	DefaultIntervalMS = 1000
	DefaultWindow     = 20
	DefaultSeedCount  = 5
	DefaultSeedSpread = 20
	DefaultStep       = 0.01
)

// DefaultSoCBases are the base state of charge of the eight stock vehicles.
var DefaultSoCBases = []float64{5, 30, 15, 20, 50, 60, 25, 34}

// VehicleConfig describes a plugged-in vehicle.
type VehicleConfig struct {
	ID      string  `json:"id" yaml:"id"`
	Name    string  `json:"name" yaml:"name"`
	SoCBase float64 `json:"soc_base" yaml:"soc_base"`
}

// BatteryConfig drives the shared station battery readings.
type BatteryConfig struct {
	MaxTempBase   float64 `json:"max_temp_base" yaml:"max_temp_base"`
	MaxTempSpread float64 `json:"max_temp_spread" yaml:"max_temp_spread"`
	MinTempBase   float64 `json:"min_temp_base" yaml:"min_temp_base"`
	MinTempSpread float64 `json:"min_temp_spread" yaml:"min_temp_spread"`
	Voltage       float64 `json:"voltage" yaml:"voltage"`
}

// Config configures a Station.
type Config struct {
	Enabled    bool            `json:"enabled" yaml:"enabled"`
	Name       string          `json:"name" yaml:"name"`
	IntervalMS int             `json:"interval_ms" yaml:"interval_ms"`
	Window     int             `json:"window" yaml:"window"`
	SeedCount  int             `json:"seed_count" yaml:"seed_count"`
	SeedSpread float64         `json:"seed_spread" yaml:"seed_spread"`
	Step       float64         `json:"step" yaml:"step"`
	Seed       int64           `json:"seed" yaml:"seed"`
	Vehicles   []VehicleConfig `json:"vehicles" yaml:"vehicles"`
	Battery    BatteryConfig   `json:"battery" yaml:"battery"`
}

// DefaultConfig returns the stock eight-vehicle station.
func DefaultConfig() Config {
	c := Config{Enabled: true}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Name == "" {
		c.Name = "station"
	}
	if c.IntervalMS == 0 {
		c.IntervalMS = DefaultIntervalMS
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.SeedCount == 0 {
		c.SeedCount = DefaultSeedCount
	}
	if c.SeedSpread == 0 {
		c.SeedSpread = DefaultSeedSpread
	}
	if c.Step == 0 {
		c.Step = DefaultStep
	}
	if len(c.Vehicles) == 0 {
		for i, base := range DefaultSoCBases {
			c.Vehicles = append(c.Vehicles, VehicleConfig{SoCBase: base, ID: strconv.Itoa(i + 1)})
		}
	}
	for i := range c.Vehicles {
		if c.Vehicles[i].ID == "" {
			c.Vehicles[i].ID = strconv.Itoa(i + 1)
		}
		if c.Vehicles[i].Name == "" {
			c.Vehicles[i].Name = "Vehicle " + c.Vehicles[i].ID
		}
	}
	b := &c.Battery
	if b.MaxTempBase == 0 && b.MaxTempSpread == 0 {
		b.MaxTempBase, b.MaxTempSpread = 29, 2
	}
	if b.MinTempBase == 0 && b.MinTempSpread == 0 {
		b.MinTempBase, b.MinTempSpread = 10, 5
	}
	if b.Voltage == 0 {
		b.Voltage = 450
	}
}

// Validate checks the station configuration.
func (c Config) Validate() error {
	if c.IntervalMS <= 0 {
		return fmt.Errorf("station: interval_ms must be positive")
	}
	if c.Window <= 0 {
		return fmt.Errorf("station: window must be positive")
	}
	if c.SeedCount > c.Window {
		return fmt.Errorf("station: seed_count %d exceeds window %d", c.SeedCount, c.Window)
	}
	seen := make(map[string]struct{}, len(c.Vehicles))
	for _, v := range c.Vehicles {
		if _, dup := seen[v.ID]; dup {
			return fmt.Errorf("station: duplicate vehicle %q", v.ID)
		}
		seen[v.ID] = struct{}{}
	}
	if len(seen) == 0 {
		return fmt.Errorf("station: at least one vehicle is required")
	}
	return nil
}

// SoCChannel names the telemetry channel holding a vehicle's SoC.
func SoCChannel(id string) string { return "soc." + id }
