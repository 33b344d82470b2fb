package metrics

import (
	"time"

	"github.com/kilianp07/battsim/core/telemetry"
)

// MetricsSink records simulation snapshots for observability purposes.
type MetricsSink interface {
	RecordSnapshot(snap telemetry.Snapshot) error
}

// AnomalyEvent captures an anomaly injection.
type AnomalyEvent struct {
	Simulation string
	RunID      string
	AnomalyID  string
	// Values holds the latest sample of every channel right after injection.
	Values map[string]float64
	Time   time.Time
}

// AnomalyRecorder records anomaly injections.
type AnomalyRecorder interface {
	RecordAnomaly(ev AnomalyEvent) error
}

// AcknowledgeEvent captures the acknowledgment of an anomaly.
type AcknowledgeEvent struct {
	Simulation string
	RunID      string
	AnomalyID  string
	Latency    time.Duration
	Time       time.Time
}

// AcknowledgeRecorder records acknowledgments.
type AcknowledgeRecorder interface {
	RecordAcknowledge(ev AcknowledgeEvent) error
}

// RecoveryEvent marks the application of recovery overrides.
type RecoveryEvent struct {
	Simulation string
	AnomalyID  string
	Time       time.Time
}

// RecoveryRecorder records recoveries.
type RecoveryRecorder interface {
	RecordRecovery(ev RecoveryEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSnapshot(telemetry.Snapshot) error  { return nil }
func (NopSink) RecordAnomaly(AnomalyEvent) error         { return nil }
func (NopSink) RecordAcknowledge(AcknowledgeEvent) error { return nil }
func (NopSink) RecordRecovery(RecoveryEvent) error       { return nil }
