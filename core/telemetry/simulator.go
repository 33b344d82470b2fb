package telemetry

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Simulator holds the SimulationState and its transitions. It is not safe
// for concurrent use.
type Simulator struct {
	cfg      Config
	rng      Rand
	runID    string
	channels []*Channel
	index    map[string]*Channel

	phase         Phase
	anomalyActive bool
	halted        bool
	active        *AnomalyEvent
	anomalies     int
	ticks         uint64
	seq           uint64
	last          time.Time
}

// NewSimulator validates cfg and seeds every channel at start.
func NewSimulator(cfg Config, r Rand, start time.Time) (*Simulator, error) {
	cfg.Channels = append([]ChannelSpec(nil), cfg.Channels...)
	cfg.Derived = append([]DerivedSpec(nil), cfg.Derived...)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = NewRand(cfg.Seed)
	}
	s := &Simulator{
		cfg:   cfg,
		rng:   r,
		runID: uuid.NewString(),
		index: make(map[string]*Channel, len(cfg.Channels)),
		last:  start,
	}
	for _, spec := range cfg.Channels {
		ch := newChannel(spec, cfg.Capacity, start)
		s.channels = append(s.channels, ch)
		s.index[spec.Name] = ch
	}
	return s, nil
}

// Config returns the normalized configuration.
func (s *Simulator) Config() Config { return s.cfg }

// RunID identifies this simulation run.
func (s *Simulator) RunID() string { return s.runID }

// Phase returns the current phase.
func (s *Simulator) Phase() Phase { return s.phase }

// AnomalyActive reports whether an anomaly awaits acknowledgment.
func (s *Simulator) AnomalyActive() bool { return s.anomalyActive }

// Halted reports whether ticks are suspended until Acknowledge.
func (s *Simulator) Halted() bool { return s.halted }

// Channel returns the named channel.
func (s *Simulator) Channel(name string) (*Channel, bool) {
	ch, ok := s.index[name]
	return ch, ok
}

// Tick appends one sample to every channel that is not frozen. It is a no-op
// while the simulator is halted.
func (s *Simulator) Tick(now time.Time) {
	s.last = now
	if s.halted {
		return
	}
	for _, ch := range s.channels {
		if ch.frozen {
			continue
		}
		ch.step(now, s.rng)
	}
	s.ticks++
	s.seq++
}

// ValidateEvent checks that ev only names known channels.
func (s *Simulator) ValidateEvent(ev AnomalyEvent) error {
	return validateEvent(ev, func(n string) bool { _, ok := s.index[n]; return ok })
}

// TriggerAnomaly appends each override's value to its channel and enters
// the Anomalous phase. Triggering again restarts the anomaly.
func (s *Simulator) TriggerAnomaly(ev AnomalyEvent, now time.Time) error {
	if err := s.ValidateEvent(ev); err != nil {
		return err
	}
	s.last = now
	s.applyOverrides(ev.Overrides, now)
	for _, name := range ev.Freeze {
		s.index[name].frozen = true
	}
	if ev.Halt {
		s.halted = true
	}
	s.active = &ev
	s.phase = PhaseAnomalous
	s.anomalyActive = true
	s.anomalies++
	s.seq++
	return nil
}

// Recover applies the recovery overrides of the active anomaly and enters
// the Recovering phase. It does nothing unless the phase is Anomalous.
func (s *Simulator) Recover(now time.Time) bool {
	if s.phase != PhaseAnomalous || s.active == nil {
		return false
	}
	s.last = now
	s.applyOverrides(s.active.RecoveryOverrides, now)
	s.phase = PhaseRecovering
	s.seq++
	return true
}

// Acknowledge clears the anomaly flag and returns to Nominal. Calling it
// without an active anomaly does nothing.
func (s *Simulator) Acknowledge() {
	if !s.anomalyActive && s.phase == PhaseNominal && !s.halted {
		return
	}
	s.anomalyActive = false
	s.phase = PhaseNominal
	s.halted = false
	s.active = nil
	s.seq++
}

// Difference returns round(latest(a) - latest(b), precision). Each channel
// contributes its own last sample.
func (s *Simulator) Difference(a, b string, precision int) (float64, bool) {
	ca, okA := s.index[a]
	cb, okB := s.index[b]
	if !okA || !okB {
		return 0, false
	}
	return roundTo(ca.Latest()-cb.Latest(), precision), true
}

func (s *Simulator) applyOverrides(overrides map[string]Transform, now time.Time) {
	// Config order keeps the result independent of map iteration.
	for _, ch := range s.channels {
		t, ok := overrides[ch.name]
		if !ok {
			continue
		}
		ch.append(now, t(ch.Latest(), s.rng))
	}
}

func roundTo(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
