package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/battsim/core/metrics"
	"github.com/kilianp07/battsim/core/telemetry"
	"github.com/kilianp07/battsim/infra/logger"
)

// Influx measurements.
const (
	MeasurementSample      = "battery_sample"
	MeasurementAnomaly     = "battery_anomaly"
	MeasurementAcknowledge = "battery_acknowledge"
)

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes snapshots and anomaly events to InfluxDB using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// SamplePoint builds the battery_sample point of a snapshot.
func SamplePoint(snap telemetry.Snapshot) *write.Point {
	p := write.NewPointWithMeasurement(MeasurementSample).
		AddTag("simulation", snap.Simulation).
		AddTag("run_id", snap.RunID).
		AddTag("phase", snap.Phase.String()).
		AddField("anomaly_active", snap.AnomalyActive).
		AddField("seq", int64(snap.Seq))
	for _, ch := range snap.Channels {
		if v, ok := ch.Latest(); ok {
			p.AddField(ch.Name, round3(v))
		}
	}
	for name, v := range snap.Derived {
		p.AddField(name, round3(v))
	}
	return p.SetTime(snap.Time)
}

// RecordSnapshot writes the latest sample of every channel.
func (s *InfluxSink) RecordSnapshot(snap telemetry.Snapshot) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, SamplePoint(snap))
}

// RecordAnomaly writes the post-injection values.
func (s *InfluxSink) RecordAnomaly(ev coremetrics.AnomalyEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement(MeasurementAnomaly).
		AddTag("simulation", ev.Simulation).
		AddTag("run_id", ev.RunID).
		AddTag("anomaly_id", ev.AnomalyID)
	for name, v := range ev.Values {
		p.AddField(name, round3(v))
	}
	p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAcknowledge writes the acknowledgment latency.
func (s *InfluxSink) RecordAcknowledge(ev coremetrics.AcknowledgeEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement(MeasurementAcknowledge).
		AddTag("simulation", ev.Simulation).
		AddTag("anomaly_id", ev.AnomalyID).
		AddField("latency_ms", ev.Latency.Milliseconds()).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
