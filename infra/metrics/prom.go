package metrics

import (
	coremetrics "github.com/kilianp07/battsim/core/metrics"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes the latest simulation state as Prometheus metrics.
type PromSink struct {
	value      *prometheus.GaugeVec
	samples    *prometheus.GaugeVec
	derived    *prometheus.GaugeVec
	ticks      *prometheus.GaugeVec
	phase      *prometheus.GaugeVec
	active     *prometheus.GaugeVec
	anomalies  *prometheus.CounterVec
	recoveries *prometheus.CounterVec
	ackLatency *prometheus.HistogramVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		value: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battsim_channel_value",
			Help: "Latest sample of a telemetry channel",
		}, []string{"simulation", "channel"}),
		samples: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battsim_channel_samples",
			Help: "Number of retained samples of a telemetry channel",
		}, []string{"simulation", "channel"}),
		derived: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battsim_derived_value",
			Help: "Derived metric computed from the latest samples",
		}, []string{"simulation", "metric"}),
		ticks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battsim_ticks",
			Help: "Number of ticks since the simulation started",
		}, []string{"simulation"}),
		phase: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battsim_phase",
			Help: "Simulation phase (0 nominal, 1 anomalous, 2 recovering)",
		}, []string{"simulation"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "battsim_anomaly_active",
			Help: "1 while an anomaly awaits acknowledgment",
		}, []string{"simulation"}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battsim_anomalies_total",
			Help: "Total number of injected anomalies",
		}, []string{"simulation", "anomaly_id"}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "battsim_recoveries_total",
			Help: "Total number of applied recoveries",
		}, []string{"simulation"}),
		ackLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "battsim_acknowledge_latency_seconds",
			Help:    "Time between anomaly injection and acknowledgment",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"simulation"}),
	}
	var err error
	if s.value, err = register(reg, s.value); err != nil {
		return nil, err
	}
	if s.samples, err = register(reg, s.samples); err != nil {
		return nil, err
	}
	if s.derived, err = register(reg, s.derived); err != nil {
		return nil, err
	}
	if s.ticks, err = register(reg, s.ticks); err != nil {
		return nil, err
	}
	if s.phase, err = register(reg, s.phase); err != nil {
		return nil, err
	}
	if s.active, err = register(reg, s.active); err != nil {
		return nil, err
	}
	if s.anomalies, err = register(reg, s.anomalies); err != nil {
		return nil, err
	}
	if s.recoveries, err = register(reg, s.recoveries); err != nil {
		return nil, err
	}
	if s.ackLatency, err = register(reg, s.ackLatency); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSnapshot sets the gauges to the snapshot values.
func (s *PromSink) RecordSnapshot(snap telemetry.Snapshot) error {
	sim := snap.Simulation
	for _, ch := range snap.Channels {
		if v, ok := ch.Latest(); ok {
			s.value.WithLabelValues(sim, ch.Name).Set(v)
		}
		s.samples.WithLabelValues(sim, ch.Name).Set(float64(len(ch.Samples)))
	}
	for name, v := range snap.Derived {
		s.derived.WithLabelValues(sim, name).Set(v)
	}
	s.ticks.WithLabelValues(sim).Set(float64(snap.Ticks))
	s.phase.WithLabelValues(sim).Set(float64(snap.Phase))
	active := 0.0
	if snap.AnomalyActive {
		active = 1
	}
	s.active.WithLabelValues(sim).Set(active)
	return nil
}

// RecordAnomaly increments the anomaly counter.
func (s *PromSink) RecordAnomaly(ev coremetrics.AnomalyEvent) error {
	s.anomalies.WithLabelValues(ev.Simulation, ev.AnomalyID).Inc()
	return nil
}

// RecordAcknowledge observes the acknowledgment latency.
func (s *PromSink) RecordAcknowledge(ev coremetrics.AcknowledgeEvent) error {
	s.ackLatency.WithLabelValues(ev.Simulation).Observe(ev.Latency.Seconds())
	return nil
}

// RecordRecovery increments the recovery counter.
func (s *PromSink) RecordRecovery(ev coremetrics.RecoveryEvent) error {
	s.recoveries.WithLabelValues(ev.Simulation).Inc()
	return nil
}
