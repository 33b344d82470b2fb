// Package station simulates vehicles plugged into a charging station and the
// repeated-selection anomaly trigger.
package station

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/kilianp07/battsim/core/logger"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/internal/eventbus"
)

// ErrUnknownVehicle is returned when selecting a vehicle that is not plugged in.
var ErrUnknownVehicle = errors.New("unknown vehicle")

// Channel names of the shared station battery.
const (
	ChannelMaxTemp = "max_temp"
	ChannelMinTemp = "min_temp"
	ChannelVoltage = "voltage"
)

// Charge states reported per vehicle.
const (
	ChargeFast      = "fast"
	ChargeUltraFast = "ultra-fast"
)

type vehicle struct {
	cfg       VehicleConfig
	anomalous bool
}

// Station couples a telemetry runner with per-vehicle attributes and the
// selection policy.
type Station struct {
	cfg Config
	h   *telemetry.Handle
	log logger.Logger
	bus *eventbus.TypedBus[Snapshot]

	mu       sync.Mutex
	sel      Selector
	selected string
	alert    bool
	alerts   int
	order    []*vehicle
	byID     map[string]*vehicle

	done     chan struct{}
	stopOnce sync.Once
}

// Options are forwarded to the underlying runner.
type Options struct {
	Clock  clock.WithTicker
	Rand   telemetry.Rand
	Logger logger.Logger
}

// New builds the station telemetry and starts ticking.
func New(cfg Config, o Options) (*Station, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.Rand == nil {
		o.Rand = telemetry.NewRand(cfg.Seed)
	}
	if o.Logger == nil {
		o.Logger = logger.NopLogger{}
	}
	tcfg := cfg.telemetryConfig(o.Rand)
	opts := []telemetry.Option{telemetry.WithRand(o.Rand), telemetry.WithLogger(o.Logger)}
	if o.Clock != nil {
		opts = append(opts, telemetry.WithClock(o.Clock))
	}
	h, err := telemetry.Start(tcfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("station: %w", err)
	}
	s := &Station{
		cfg:      cfg,
		h:        h,
		log:      o.Logger,
		bus:      eventbus.NewTyped[Snapshot](),
		selected: cfg.Vehicles[0].ID,
		byID:     make(map[string]*vehicle, len(cfg.Vehicles)),
		done:     make(chan struct{}),
	}
	for _, vc := range cfg.Vehicles {
		v := &vehicle{cfg: vc}
		s.order = append(s.order, v)
		s.byID[vc.ID] = v
	}
	go s.forward(h.Subscribe())
	return s, nil
}

func (c Config) telemetryConfig(r telemetry.Rand) telemetry.Config {
	hundred, zero := 100.0, 0.0
	tc := telemetry.Config{
		Name:       c.Name,
		IntervalMS: c.IntervalMS,
		Seed:       c.Seed,
	}
	for _, v := range c.Vehicles {
		tc.Channels = append(tc.Channels, telemetry.ChannelSpec{
			Name:      SoCChannel(v.ID),
			Unit:      "%",
			Seed:      math.Min(v.SoCBase+r.Float64()*c.SeedSpread, 100),
			SeedCount: c.SeedCount,
			Kind:      telemetry.KindLinear,
			Step:      c.Step,
			Min:       &zero,
			Max:       &hundred,
			Capacity:  c.Window,
		})
	}
	b := c.Battery
	tc.Channels = append(tc.Channels,
		telemetry.ChannelSpec{Name: ChannelMaxTemp, Unit: "°C", Seed: b.MaxTempBase + b.MaxTempSpread/2,
			Kind: telemetry.KindUniform, Base: b.MaxTempBase, Spread: b.MaxTempSpread, Capacity: c.Window},
		telemetry.ChannelSpec{Name: ChannelMinTemp, Unit: "°C", Seed: b.MinTempBase,
			Kind: telemetry.KindUniform, Base: b.MinTempBase, Spread: b.MinTempSpread, Capacity: c.Window},
		telemetry.ChannelSpec{Name: ChannelVoltage, Unit: "V", Seed: b.Voltage,
			Kind: telemetry.KindConstant, Capacity: c.Window},
	)
	tc.Derived = []telemetry.DerivedSpec{{Name: "temperature_diff", Minuend: ChannelMaxTemp, Subtrahend: ChannelMinTemp}}
	return tc
}

// Name returns the station name.
func (s *Station) Name() string { return s.cfg.Name }

// Telemetry exposes the underlying runner so observers can treat the station
// like any other simulation.
func (s *Station) Telemetry() *telemetry.Handle { return s.h }

// Select applies the repeated-selection policy. It reports whether the
// selection raised the station alert.
func (s *Station) Select(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownVehicle, id)
	}
	if s.sel.Select(id) {
		if err := s.h.TriggerAnomaly(telemetry.AnomalyEvent{
			ID:     uuid.NewString(),
			Freeze: []string{SoCChannel(id)},
		}); err != nil {
			return false, err
		}
		v.anomalous = true
		s.alert = true
		s.alerts++
		s.log.Warnf("station %s: anomaly detected on vehicle %s", s.cfg.Name, id)
		s.bus.Publish(s.snapshotLocked(s.h.Snapshot()))
		return true, nil
	}
	s.h.Acknowledge()
	s.alert = false
	s.selected = id
	s.log.Debugf("station %s: vehicle %s selected", s.cfg.Name, id)
	s.bus.Publish(s.snapshotLocked(s.h.Snapshot()))
	return false, nil
}

// Snapshot returns the current station view.
func (s *Station) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.h.Snapshot())
}

// Subscribe returns a channel receiving a station snapshot after every tick
// and selection.
func (s *Station) Subscribe() <-chan Snapshot { return s.bus.Subscribe() }

// Unsubscribe releases a subscription.
func (s *Station) Unsubscribe(ch <-chan Snapshot) { s.bus.Unsubscribe(ch) }

// Stop halts the runner and closes subscriptions. It is idempotent.
func (s *Station) Stop() {
	s.stopOnce.Do(func() {
		s.h.Stop()
		<-s.done
		s.bus.Close()
	})
}

func (s *Station) forward(sub <-chan telemetry.Snapshot) {
	defer close(s.done)
	for snap := range sub {
		s.mu.Lock()
		out := s.snapshotLocked(snap)
		s.mu.Unlock()
		s.bus.Publish(out)
	}
}
