package telemetry

import (
	"math"
	"time"
)

// Channel is a named time series with index-aligned timestamps.
type Channel struct {
	name     string
	unit     string
	seed     float64
	min      float64
	max      float64
	capacity int
	gen      Generator
	frozen   bool

	samples []float64
	times   []time.Time
}

func newChannel(spec ChannelSpec, capacity int, start time.Time) *Channel {
	c := &Channel{
		name:     spec.Name,
		unit:     spec.Unit,
		seed:     spec.Seed,
		min:      math.Inf(-1),
		max:      math.Inf(1),
		capacity: capacity,
		gen:      spec.generator(),
	}
	if spec.Capacity > 0 {
		c.capacity = spec.Capacity
	}
	if spec.Min != nil {
		c.min = *spec.Min
	}
	if spec.Max != nil {
		c.max = *spec.Max
	}
	n := spec.SeedCount
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		c.append(start, spec.Seed)
	}
	return c
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Len returns the number of retained samples.
func (c *Channel) Len() int { return len(c.samples) }

// Frozen reports whether ticks skip this channel.
func (c *Channel) Frozen() bool { return c.frozen }

// Latest returns the most recent sample, or the seed value when empty.
func (c *Channel) Latest() float64 {
	if len(c.samples) == 0 {
		return c.seed
	}
	return c.samples[len(c.samples)-1]
}

func (c *Channel) clamp(v float64) float64 {
	if math.IsNaN(v) {
		return c.Latest()
	}
	return math.Max(c.min, math.Min(c.max, v))
}

func (c *Channel) step(now time.Time, r Rand) {
	c.append(now, c.clamp(c.gen(c.Latest(), r)))
}

func (c *Channel) append(ts time.Time, v float64) {
	c.samples = append(c.samples, v)
	c.times = append(c.times, ts)
	if c.capacity > 0 && len(c.samples) > c.capacity {
		drop := len(c.samples) - c.capacity
		c.samples = append(c.samples[:0], c.samples[drop:]...)
		c.times = append(c.times[:0], c.times[drop:]...)
	}
}

func (c *Channel) snapshot(layout string) ChannelSnapshot {
	samples := make([]float64, len(c.samples))
	copy(samples, c.samples)
	stamps := make([]string, len(c.times))
	for i, t := range c.times {
		stamps[i] = t.Format(layout)
	}
	return ChannelSnapshot{
		Name:       c.name,
		Unit:       c.unit,
		Samples:    samples,
		Timestamps: stamps,
		Frozen:     c.frozen,
	}
}
