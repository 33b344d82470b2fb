package telemetry

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTimestampLayout mirrors a browser's locale time string.
const DefaultTimestampLayout = "15:04:05"

// Config describes one simulation.
type Config struct {
	Name            string        `json:"name" yaml:"name"`
	IntervalMS      int           `json:"interval_ms" yaml:"interval_ms"`
	Capacity        int           `json:"capacity" yaml:"capacity"`
	TimestampLayout string        `json:"timestamp_layout" yaml:"timestamp_layout"`
	Seed            int64         `json:"seed" yaml:"seed"`
	Channels        []ChannelSpec `json:"channels" yaml:"channels"`
	Anomaly         *AnomalySpec  `json:"anomaly" yaml:"anomaly"`
	Derived         []DerivedSpec `json:"derived" yaml:"derived"`
}

// ChannelSpec configures a single channel and its tick generator.
type ChannelSpec struct {
	Name      string   `json:"name" yaml:"name"`
	Unit      string   `json:"unit" yaml:"unit"`
	Seed      float64  `json:"seed" yaml:"seed"`
	SeedCount int      `json:"seed_count" yaml:"seed_count"`
	Kind      string   `json:"kind" yaml:"kind"`
	Step      float64  `json:"step" yaml:"step"`
	Base      float64  `json:"base" yaml:"base"`
	Spread    float64  `json:"spread" yaml:"spread"`
	Min       *float64 `json:"min" yaml:"min"`
	Max       *float64 `json:"max" yaml:"max"`
	Capacity  int      `json:"capacity" yaml:"capacity"`

	// Generator overrides Kind when set programmatically.
	Generator Generator `json:"-" yaml:"-"`
}

// DerivedSpec computes round(latest(Minuend) - latest(Subtrahend), Precision).
type DerivedSpec struct {
	Name       string `json:"name" yaml:"name"`
	Minuend    string `json:"minuend" yaml:"minuend"`
	Subtrahend string `json:"subtrahend" yaml:"subtrahend"`
	Precision  int    `json:"precision" yaml:"precision"`
}

// AnomalySpec is the declarative form of an AnomalyEvent.
type AnomalySpec struct {
	ID                string                  `json:"id" yaml:"id"`
	TriggerAfterMS    int                     `json:"trigger_after_ms" yaml:"trigger_after_ms"`
	TriggerJitterMS   int                     `json:"trigger_jitter_ms" yaml:"trigger_jitter_ms"`
	Overrides         map[string]OverrideSpec `json:"overrides" yaml:"overrides"`
	RecoveryAfterMS   int                     `json:"recovery_after_ms" yaml:"recovery_after_ms"`
	RecoveryOverrides map[string]OverrideSpec `json:"recovery_overrides" yaml:"recovery_overrides"`
	Freeze            []string                `json:"freeze" yaml:"freeze"`
	Halt              bool                    `json:"halt" yaml:"halt"`
}

// Override operations accepted in OverrideSpec.Op.
const (
	OpSet     = "set"
	OpAdd     = "add"
	OpScale   = "scale"
	OpUniform = "uniform"
)

// OverrideSpec is the declarative form of a Transform.
type OverrideSpec struct {
	Op    string  `json:"op" yaml:"op"`
	Value float64 `json:"value" yaml:"value"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
}

// AnomalyEvent is a one-shot scripted excursion.
type AnomalyEvent struct {
	ID                string
	TriggerAfter      time.Duration
	TriggerJitter     time.Duration
	Overrides         map[string]Transform
	RecoveryAfter     time.Duration
	RecoveryOverrides map[string]Transform
	// Freeze lists channels that stop ticking for the rest of the run.
	Freeze []string
	// Halt stops every channel until Acknowledge.
	Halt bool
}

// SetDefaults fills optional fields.
func (c *Config) SetDefaults() {
	if c.TimestampLayout == "" {
		c.TimestampLayout = DefaultTimestampLayout
	}
	for i := range c.Channels {
		if c.Channels[i].Kind == "" {
			c.Channels[i].Kind = KindHold
		}
	}
	for i := range c.Derived {
		if c.Derived[i].Precision <= 0 {
			c.Derived[i].Precision = 1
		}
	}
}

// Interval returns the tick period.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// Validate checks the simulation configuration.
func (c Config) Validate() error {
	if c.IntervalMS <= 0 {
		return configErr("interval_ms", "must be positive, got %d", c.IntervalMS)
	}
	if len(c.Channels) == 0 {
		return configErr("channels", "at least one channel is required")
	}
	if c.Capacity < 0 {
		return configErr("capacity", "must not be negative")
	}
	names := make(map[string]struct{}, len(c.Channels))
	for i, ch := range c.Channels {
		if ch.Name == "" {
			return configErr("channels", "channel %d has no name", i)
		}
		if _, dup := names[ch.Name]; dup {
			return configErr("channels", "duplicate channel %q", ch.Name)
		}
		names[ch.Name] = struct{}{}
		if err := ch.validate(); err != nil {
			return err
		}
	}
	for _, d := range c.Derived {
		if d.Name == "" {
			return configErr("derived", "metric has no name")
		}
		for _, ref := range []string{d.Minuend, d.Subtrahend} {
			if _, ok := names[ref]; !ok {
				return configErr("derived."+d.Name, "unknown channel %q", ref)
			}
		}
	}
	if c.Anomaly != nil {
		ev, err := c.Anomaly.Event()
		if err != nil {
			return err
		}
		if err := validateEvent(ev, func(n string) bool { _, ok := names[n]; return ok }); err != nil {
			return err
		}
	}
	return nil
}

func (s ChannelSpec) validate() error {
	field := "channels." + s.Name
	if s.Min != nil && s.Max != nil && *s.Min > *s.Max {
		return configErr(field, "min %v > max %v", *s.Min, *s.Max)
	}
	if s.Capacity < 0 {
		return configErr(field, "capacity must not be negative")
	}
	if s.Generator != nil {
		return nil
	}
	switch s.Kind {
	case KindConstant, KindLinear, KindUniform, KindWalk, KindHold, "":
	default:
		return configErr(field, "unknown kind %q", s.Kind)
	}
	return nil
}

func (s ChannelSpec) generator() Generator {
	if s.Generator != nil {
		return s.Generator
	}
	switch s.Kind {
	case KindConstant:
		return Constant(s.Seed)
	case KindLinear:
		return Linear(s.Step)
	case KindUniform:
		return Uniform(s.Base, s.Spread)
	case KindWalk:
		return Walk(s.Step)
	default:
		return Hold()
	}
}

// Transform compiles the override.
func (o OverrideSpec) Transform() (Transform, error) {
	switch o.Op {
	case OpSet, "":
		return Set(o.Value), nil
	case OpAdd:
		return Add(o.Value), nil
	case OpScale:
		return Scale(o.Value), nil
	case OpUniform:
		if o.Min > o.Max {
			return nil, configErr("override", "uniform min %v > max %v", o.Min, o.Max)
		}
		return UniformIn(o.Min, o.Max), nil
	default:
		return nil, configErr("override", "unknown op %q", o.Op)
	}
}

// Event compiles the declarative spec into an AnomalyEvent. A missing ID is
// replaced by a random UUID.
func (s AnomalySpec) Event() (AnomalyEvent, error) {
	if s.TriggerAfterMS < 0 || s.TriggerJitterMS < 0 || s.RecoveryAfterMS < 0 {
		return AnomalyEvent{}, configErr("anomaly", "delays must not be negative")
	}
	over, err := compileOverrides(s.Overrides)
	if err != nil {
		return AnomalyEvent{}, err
	}
	rec, err := compileOverrides(s.RecoveryOverrides)
	if err != nil {
		return AnomalyEvent{}, err
	}
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}
	return AnomalyEvent{
		ID:                id,
		TriggerAfter:      time.Duration(s.TriggerAfterMS) * time.Millisecond,
		TriggerJitter:     time.Duration(s.TriggerJitterMS) * time.Millisecond,
		Overrides:         over,
		RecoveryAfter:     time.Duration(s.RecoveryAfterMS) * time.Millisecond,
		RecoveryOverrides: rec,
		Freeze:            append([]string(nil), s.Freeze...),
		Halt:              s.Halt,
	}, nil
}

func compileOverrides(specs map[string]OverrideSpec) (map[string]Transform, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]Transform, len(specs))
	for name, spec := range specs {
		t, err := spec.Transform()
		if err != nil {
			var ce *ConfigurationError
			if errors.As(err, &ce) {
				ce.Field = "overrides." + name
			}
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

func validateEvent(ev AnomalyEvent, known func(string) bool) error {
	if ev.TriggerAfter < 0 || ev.TriggerJitter < 0 || ev.RecoveryAfter < 0 {
		return configErr("anomaly", "delays must not be negative")
	}
	for name, t := range ev.Overrides {
		if !known(name) {
			return configErr("anomaly.overrides", "unknown channel %q", name)
		}
		if t == nil {
			return configErr("anomaly.overrides", "nil transform for %q", name)
		}
	}
	for name, t := range ev.RecoveryOverrides {
		if !known(name) {
			return configErr("anomaly.recovery_overrides", "unknown channel %q", name)
		}
		if t == nil {
			return configErr("anomaly.recovery_overrides", "nil transform for %q", name)
		}
	}
	for _, name := range ev.Freeze {
		if !known(name) {
			return configErr("anomaly.freeze", "unknown channel %q", name)
		}
	}
	return nil
}
