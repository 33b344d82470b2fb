// Package telemetry simulates battery telemetry channels.
//
// A Simulator owns the channel state and exposes named transitions
// (Tick, TriggerAnomaly, Recover, Acknowledge). It is not safe for
// concurrent use; Start wraps it in a runner that serializes ticks, timers
// and external commands on a single goroutine and publishes an immutable
// Snapshot after every mutation.
//
// Phase transitions:
//
//	Nominal --TriggerAnomaly--> Anomalous --Recover--> Recovering
//	Anomalous|Recovering --Acknowledge--> Nominal
package telemetry
