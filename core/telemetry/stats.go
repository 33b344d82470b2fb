package telemetry

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ChannelStats summarizes the retained samples of a channel.
type ChannelStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
}

// ComputeStats returns summary statistics; StdDev is zero below two samples.
func ComputeStats(samples []float64) ChannelStats {
	if len(samples) == 0 {
		return ChannelStats{}
	}
	st := ChannelStats{
		Count: len(samples),
		Min:   floats.Min(samples),
		Max:   floats.Max(samples),
	}
	if len(samples) < 2 {
		st.Mean = samples[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(samples, nil)
	return st
}
