// Package metrics defines the recorder interfaces used to export simulation
// snapshots and anomaly lifecycle events. Sinks like PromSink and InfluxSink
// live in infra/metrics and can be combined with NewMultiSink; the factory
// helpers return a MultiSink automatically when several sinks are configured.
package metrics
