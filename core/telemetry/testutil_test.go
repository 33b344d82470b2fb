package telemetry

import "time"

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// fixedRand returns values from a fixed cycle.
type fixedRand struct {
	vals []float64
	i    int
}

func (r *fixedRand) Float64() float64 {
	if len(r.vals) == 0 {
		return 0
	}
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v
}

func ptr(v float64) *float64 { return &v }

func carConfig() Config {
	return Config{
		Name:       "car",
		IntervalMS: 1000,
		Channels: []ChannelSpec{
			{Name: "soc", Unit: "%", Seed: 100, Kind: KindLinear, Step: -0.1, Min: ptr(0), Max: ptr(100)},
			{Name: "voltage", Unit: "V", Seed: 450, Kind: KindUniform, Base: 450, Spread: 5},
			{Name: "max_temp", Unit: "°C", Seed: 30, Kind: KindConstant},
			{Name: "min_temp", Unit: "°C", Seed: 20, Kind: KindLinear, Step: 0.1},
		},
		Derived: []DerivedSpec{{Name: "temperature_diff", Minuend: "max_temp", Subtrahend: "min_temp"}},
	}
}
