package telemetry

import (
	"time"
)

// ChannelSnapshot is the chart contract for one channel.
type ChannelSnapshot struct {
	Name       string    `json:"name"`
	Unit       string    `json:"unit,omitempty"`
	Samples    []float64 `json:"samples"`
	Timestamps []string  `json:"timestamps"`
	Frozen     bool      `json:"frozen,omitempty"`
}

// Latest returns the newest sample.
func (c ChannelSnapshot) Latest() (float64, bool) {
	if len(c.Samples) == 0 {
		return 0, false
	}
	return c.Samples[len(c.Samples)-1], true
}

// Snapshot is an immutable copy of the simulation state.
type Snapshot struct {
	Simulation    string                  `json:"simulation"`
	RunID         string                  `json:"run_id"`
	Seq           uint64                  `json:"seq"`
	Ticks         uint64                  `json:"ticks"`
	Phase         Phase                   `json:"phase"`
	AnomalyActive bool                    `json:"anomaly_active"`
	AnomalyID     string                  `json:"anomaly_id,omitempty"`
	Anomalies     int                     `json:"anomalies"`
	Halted        bool                    `json:"halted,omitempty"`
	Channels      []ChannelSnapshot       `json:"channels"`
	Derived       map[string]float64      `json:"derived,omitempty"`
	Stats         map[string]ChannelStats `json:"stats,omitempty"`
	Time          time.Time               `json:"time"`
}

// Channel returns the named channel snapshot.
func (s Snapshot) Channel(name string) (ChannelSnapshot, bool) {
	for _, c := range s.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return ChannelSnapshot{}, false
}

// Latest returns the newest sample of the named channel.
func (s Snapshot) Latest(name string) (float64, bool) {
	c, ok := s.Channel(name)
	if !ok {
		return 0, false
	}
	return c.Latest()
}

// Snapshot copies the current state.
func (s *Simulator) Snapshot() Snapshot {
	snap := Snapshot{
		Simulation:    s.cfg.Name,
		RunID:         s.runID,
		Seq:           s.seq,
		Ticks:         s.ticks,
		Phase:         s.phase,
		AnomalyActive: s.anomalyActive,
		Anomalies:     s.anomalies,
		Halted:        s.halted,
		Channels:      make([]ChannelSnapshot, 0, len(s.channels)),
		Stats:         make(map[string]ChannelStats, len(s.channels)),
		Time:          s.last,
	}
	if s.active != nil {
		snap.AnomalyID = s.active.ID
	}
	for _, ch := range s.channels {
		cs := ch.snapshot(s.cfg.TimestampLayout)
		snap.Channels = append(snap.Channels, cs)
		snap.Stats[ch.name] = ComputeStats(cs.Samples)
	}
	if len(s.cfg.Derived) > 0 {
		snap.Derived = make(map[string]float64, len(s.cfg.Derived))
		for _, d := range s.cfg.Derived {
			if v, ok := s.Difference(d.Minuend, d.Subtrahend, d.Precision); ok {
				snap.Derived[d.Name] = v
			}
		}
	}
	return snap
}
