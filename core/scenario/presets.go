package scenario

import (
	"fmt"
	"sort"

	"github.com/kilianp07/battsim/core/telemetry"
)

// Preset names.
const (
	PresetCar            = "car"
	PresetCarCharts      = "car-charts"
	PresetStationBattery = "station-battery"
)

var presets = map[string]func() telemetry.Config{
	PresetCar:            carPreset,
	PresetCarCharts:      carChartsPreset,
	PresetStationBattery: stationBatteryPreset,
}

// Preset returns a fresh copy of the named preset.
func Preset(name string) (telemetry.Config, error) {
	fn, ok := presets[name]
	if !ok {
		return telemetry.Config{}, fmt.Errorf("unknown preset %q", name)
	}
	return fn(), nil
}

// Presets lists the available preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func f(v float64) *float64 { return &v }

func tempDiff() []telemetry.DerivedSpec {
	return []telemetry.DerivedSpec{{Name: "temperature_diff", Minuend: "max_temp", Subtrahend: "min_temp", Precision: 1}}
}

// carPreset is the vehicle screen: the anomaly halts every chart and the
// voltage comes back to nominal one second later.
func carPreset() telemetry.Config {
	return telemetry.Config{
		Name:       PresetCar,
		IntervalMS: 1000,
		Channels: []telemetry.ChannelSpec{
			{Name: "soc", Unit: "%", Seed: 100, Kind: telemetry.KindLinear, Step: -0.1, Min: f(0), Max: f(100)},
			{Name: "voltage", Unit: "V", Seed: 450, Kind: telemetry.KindUniform, Base: 450, Spread: 5},
			{Name: "max_temp", Unit: "°C", Seed: 30, Kind: telemetry.KindHold},
			{Name: "min_temp", Unit: "°C", Seed: 20, Kind: telemetry.KindLinear, Step: 0.1},
		},
		Derived: tempDiff(),
		Anomaly: &telemetry.AnomalySpec{
			ID:             "car-overvoltage",
			TriggerAfterMS: 30000,
			Overrides: map[string]telemetry.OverrideSpec{
				"voltage":  {Op: telemetry.OpSet, Value: 600},
				"max_temp": {Op: telemetry.OpSet, Value: 80},
				"min_temp": {Op: telemetry.OpSet, Value: 50},
			},
			RecoveryAfterMS: 1000,
			RecoveryOverrides: map[string]telemetry.OverrideSpec{
				"voltage": {Op: telemetry.OpUniform, Min: 450, Max: 455},
			},
			Halt: true,
		},
	}
}

// carChartsPreset is the standalone chart widget with a faster SoC decay.
func carChartsPreset() telemetry.Config {
	return telemetry.Config{
		Name:       PresetCarCharts,
		IntervalMS: 2000,
		Channels: []telemetry.ChannelSpec{
			{Name: "soc", Unit: "%", Seed: 100, Kind: telemetry.KindLinear, Step: -5, Min: f(0), Max: f(100)},
			{Name: "voltage", Unit: "V", Seed: 450, Kind: telemetry.KindHold},
			{Name: "max_temp", Unit: "°C", Seed: 30, Kind: telemetry.KindConstant},
			{Name: "min_temp", Unit: "°C", Seed: 20, Kind: telemetry.KindLinear, Step: 0.1},
		},
		Derived: tempDiff(),
		Anomaly: &telemetry.AnomalySpec{
			ID:             "car-charts-overvoltage",
			TriggerAfterMS: 30000,
			Overrides: map[string]telemetry.OverrideSpec{
				"voltage":  {Op: telemetry.OpSet, Value: 800},
				"max_temp": {Op: telemetry.OpAdd, Value: 50},
			},
		},
	}
}

// stationBatteryPreset is the shared battery panel of the charging station.
func stationBatteryPreset() telemetry.Config {
	return telemetry.Config{
		Name:       PresetStationBattery,
		IntervalMS: 1000,
		Capacity:   20,
		Channels: []telemetry.ChannelSpec{
			{Name: "max_temp", Unit: "°C", Seed: 30, Kind: telemetry.KindUniform, Base: 29, Spread: 2},
			{Name: "min_temp", Unit: "°C", Seed: 10, Kind: telemetry.KindUniform, Base: 10, Spread: 5},
			{Name: "voltage", Unit: "V", Seed: 450, Kind: telemetry.KindConstant},
		},
		Derived: tempDiff(),
	}
}
