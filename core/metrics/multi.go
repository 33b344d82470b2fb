package metrics

import (
	"errors"

	"github.com/kilianp07/battsim/core/telemetry"
)

// MultiSink fans records out to several sinks. Every sink is attempted; the
// errors are joined.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSnapshot forwards the snapshot to all sinks.
func (m *MultiSink) RecordSnapshot(snap telemetry.Snapshot) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordSnapshot(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordAnomaly forwards anomaly events to sinks supporting them.
func (m *MultiSink) RecordAnomaly(ev AnomalyEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AnomalyRecorder); ok {
			if err := rec.RecordAnomaly(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordAcknowledge forwards acknowledgments to sinks supporting them.
func (m *MultiSink) RecordAcknowledge(ev AcknowledgeEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AcknowledgeRecorder); ok {
			if err := rec.RecordAcknowledge(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordRecovery forwards recoveries to sinks supporting them.
func (m *MultiSink) RecordRecovery(ev RecoveryEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(RecoveryRecorder); ok {
			if err := rec.RecordRecovery(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
