package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/kilianp07/battsim/core/logger"
	"github.com/kilianp07/battsim/internal/eventbus"
)

// Option customizes a runner.
type Option func(*options)

type options struct {
	clock clock.WithTicker
	rng   Rand
	log   logger.Logger
}

// WithClock sets the clock used for ticks and one-shot timers.
func WithClock(c clock.WithTicker) Option { return func(o *options) { o.clock = c } }

// WithRand sets the random source, overriding Config.Seed.
func WithRand(r Rand) Option { return func(o *options) { o.rng = r } }

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option { return func(o *options) { o.log = l } }

// Handle controls a running simulation. All mutations happen on the runner
// goroutine; the methods below are safe for concurrent use.
type Handle struct {
	sim *Simulator
	clk clock.WithTicker
	log logger.Logger
	bus *eventbus.TypedBus[Snapshot]

	latest atomic.Pointer[Snapshot]

	cmds     chan func()
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// owned by the runner goroutine
	ticker    clock.Ticker
	scheduled *AnomalyEvent
	anomalyT  clock.Timer
	recoveryT clock.Timer
}

// Start validates cfg, seeds the state and schedules the periodic tick and
// the configured anomaly. Nothing is scheduled when validation fails.
func Start(cfg Config, opts ...Option) (*Handle, error) {
	o := options{clock: clock.RealClock{}, log: logger.NopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	sim, err := NewSimulator(cfg, o.rng, o.clock.Now())
	if err != nil {
		return nil, err
	}
	cfg = sim.Config()
	var scheduled *AnomalyEvent
	if cfg.Anomaly != nil {
		ev, err := cfg.Anomaly.Event()
		if err != nil {
			return nil, err
		}
		scheduled = &ev
	}

	h := &Handle{
		sim:  sim,
		clk:  o.clock,
		log:  o.log,
		bus:  eventbus.NewTyped[Snapshot](),
		cmds: make(chan func()),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	h.ticker = o.clock.NewTicker(cfg.Interval())
	if scheduled != nil {
		delay := scheduled.TriggerAfter
		if scheduled.TriggerJitter > 0 {
			delay += time.Duration(sim.rng.Float64() * float64(scheduled.TriggerJitter))
		}
		h.scheduled = scheduled
		h.anomalyT = o.clock.NewTimer(delay)
		h.log.Infof("simulation %s: anomaly %s scheduled in %s", cfg.Name, scheduled.ID, delay)
	}
	h.publish()
	go h.loop()
	h.log.Infof("simulation %s started (run %s, interval %s)", cfg.Name, sim.RunID(), cfg.Interval())
	return h, nil
}

// Name returns the simulation name.
func (h *Handle) Name() string { return h.sim.cfg.Name }

// Config returns the normalized configuration.
func (h *Handle) Config() Config { return h.sim.cfg }

// Snapshot returns the latest published snapshot.
func (h *Handle) Snapshot() Snapshot { return *h.latest.Load() }

// Subscribe returns a channel receiving a snapshot after every mutation.
// Slow subscribers miss snapshots rather than blocking the runner.
func (h *Handle) Subscribe() <-chan Snapshot { return h.bus.Subscribe() }

// Unsubscribe releases a subscription.
func (h *Handle) Unsubscribe(ch <-chan Snapshot) { h.bus.Unsubscribe(ch) }

// Done is closed once the runner goroutine exited.
func (h *Handle) Done() <-chan struct{} { return h.done }

// TriggerAnomaly applies ev immediately. Unknown channels are rejected
// before anything is scheduled.
func (h *Handle) TriggerAnomaly(ev AnomalyEvent) error {
	if err := h.sim.ValidateEvent(ev); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	return h.exec(func() { h.inject(ev, h.clk.Now()) })
}

// InjectSpec compiles spec and applies it immediately. A nil spec replays
// the configured anomaly. It returns the applied anomaly id.
func (h *Handle) InjectSpec(spec *AnomalySpec) (string, error) {
	if spec == nil {
		spec = h.sim.cfg.Anomaly
	}
	if spec == nil {
		return "", configErr("anomaly", "no anomaly configured for %q", h.sim.cfg.Name)
	}
	ev, err := spec.Event()
	if err != nil {
		return "", err
	}
	if err := h.TriggerAnomaly(ev); err != nil {
		return "", err
	}
	return ev.ID, nil
}

// Acknowledge clears the anomaly. It never fails, including after Stop.
func (h *Handle) Acknowledge() {
	_ = h.exec(h.acknowledge)
}

// Stop cancels every pending timer and waits for the runner to exit. No
// mutation happens once Stop returns. Calling Stop again is a no-op.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
	<-h.done
	h.bus.Close()
}

func (h *Handle) exec(fn func()) error {
	finished := make(chan struct{})
	select {
	case h.cmds <- func() { defer close(finished); fn() }:
	case <-h.done:
		return ErrStopped
	}
	<-finished
	return nil
}

func (h *Handle) loop() {
	defer close(h.done)
	defer h.stopTimers()
	for {
		select {
		case <-h.quit:
			return
		default:
		}
		select {
		case <-h.quit:
			return
		case now := <-h.ticker.C():
			h.tick(now)
		case now := <-timerC(h.anomalyT):
			h.anomalyT = nil
			// A tick due at the same instant lands first so the anomaly
			// value is the visible latest sample.
			h.drainTick()
			if ev := h.scheduled; ev != nil {
				h.scheduled = nil
				h.inject(*ev, now)
			}
		case now := <-timerC(h.recoveryT):
			h.recoveryT = nil
			if h.sim.Recover(now) {
				h.log.Infof("simulation %s: recovery applied", h.sim.cfg.Name)
				h.publish()
			}
		case cmd := <-h.cmds:
			cmd()
		}
	}
}

func (h *Handle) tick(now time.Time) {
	before := h.sim.seq
	h.sim.Tick(now)
	if h.sim.seq != before {
		h.publish()
	}
}

func (h *Handle) drainTick() {
	select {
	case now := <-h.ticker.C():
		h.tick(now)
	default:
	}
}

func (h *Handle) inject(ev AnomalyEvent, now time.Time) {
	if err := h.sim.TriggerAnomaly(ev, now); err != nil {
		h.log.Errorf("simulation %s: anomaly %s rejected: %v", h.sim.cfg.Name, ev.ID, err)
		return
	}
	h.log.Warnf("simulation %s: anomaly %s injected", h.sim.cfg.Name, ev.ID)
	if h.recoveryT != nil {
		h.recoveryT.Stop()
		h.recoveryT = nil
	}
	if ev.RecoveryAfter > 0 || len(ev.RecoveryOverrides) > 0 {
		h.recoveryT = h.clk.NewTimer(ev.RecoveryAfter)
	}
	h.publish()
}

func (h *Handle) acknowledge() {
	if !h.sim.AnomalyActive() && h.sim.Phase() == PhaseNominal && !h.sim.Halted() {
		return
	}
	h.sim.Acknowledge()
	if h.recoveryT != nil {
		h.recoveryT.Stop()
		h.recoveryT = nil
	}
	h.log.Infof("simulation %s: anomaly acknowledged", h.sim.cfg.Name)
	h.publish()
}

func (h *Handle) publish() {
	snap := h.sim.Snapshot()
	h.latest.Store(&snap)
	h.bus.Publish(snap)
}

func (h *Handle) stopTimers() {
	h.ticker.Stop()
	if h.anomalyT != nil {
		h.anomalyT.Stop()
	}
	if h.recoveryT != nil {
		h.recoveryT.Stop()
	}
}

func timerC(t clock.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C()
}
