package metrics

import (
	"context"
	"time"

	coremetrics "github.com/kilianp07/battsim/core/metrics"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/infra/logger"
)

// SnapshotSource is implemented by *telemetry.Handle.
type SnapshotSource interface {
	Subscribe() <-chan telemetry.Snapshot
	Unsubscribe(<-chan telemetry.Snapshot)
}

// StartSnapshotCollector subscribes to src and records every snapshot. It
// derives anomaly, recovery and acknowledgment events from consecutive
// snapshots. It stops when ctx is canceled or the source closes.
func StartSnapshotCollector(ctx context.Context, src SnapshotSource, sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if src == nil || sink == nil {
		close(done)
		return done
	}
	sub := src.Subscribe()
	c := &collector{sink: sink, log: logger.New("metrics-collector"), now: time.Now}
	go func() {
		defer close(done)
		defer src.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-sub:
				if !ok {
					return
				}
				c.observe(snap)
			}
		}
	}()
	return done
}

type collector struct {
	sink coremetrics.MetricsSink
	log  logger.Logger
	now  func() time.Time

	prev      telemetry.Snapshot
	anomalyAt time.Time
}

func (c *collector) observe(snap telemetry.Snapshot) {
	if err := c.sink.RecordSnapshot(snap); err != nil {
		c.log.Errorf("record snapshot %s: %v", snap.Simulation, err)
	}
	prev := c.prev
	c.prev = snap

	if snap.Anomalies > prev.Anomalies && snap.AnomalyActive {
		c.anomalyAt = c.now()
		if r, ok := c.sink.(coremetrics.AnomalyRecorder); ok {
			values := make(map[string]float64, len(snap.Channels))
			for _, ch := range snap.Channels {
				if v, ok := ch.Latest(); ok {
					values[ch.Name] = v
				}
			}
			if err := r.RecordAnomaly(coremetrics.AnomalyEvent{
				Simulation: snap.Simulation,
				RunID:      snap.RunID,
				AnomalyID:  snap.AnomalyID,
				Values:     values,
				Time:       snap.Time,
			}); err != nil {
				c.log.Errorf("record anomaly %s: %v", snap.Simulation, err)
			}
		}
	}
	if prev.Phase == telemetry.PhaseAnomalous && snap.Phase == telemetry.PhaseRecovering {
		if r, ok := c.sink.(coremetrics.RecoveryRecorder); ok {
			if err := r.RecordRecovery(coremetrics.RecoveryEvent{
				Simulation: snap.Simulation,
				AnomalyID:  snap.AnomalyID,
				Time:       snap.Time,
			}); err != nil {
				c.log.Errorf("record recovery %s: %v", snap.Simulation, err)
			}
		}
	}
	if prev.AnomalyActive && !snap.AnomalyActive {
		if r, ok := c.sink.(coremetrics.AcknowledgeRecorder); ok {
			now := c.now()
			if err := r.RecordAcknowledge(coremetrics.AcknowledgeEvent{
				Simulation: snap.Simulation,
				RunID:      snap.RunID,
				AnomalyID:  prev.AnomalyID,
				Latency:    now.Sub(c.anomalyAt),
				Time:       now,
			}); err != nil {
				c.log.Errorf("record acknowledge %s: %v", snap.Simulation, err)
			}
		}
	}
}
