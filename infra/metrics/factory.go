package metrics

import (
	"github.com/kilianp07/battsim/core/factory"
	coremetrics "github.com/kilianp07/battsim/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// init registers the prometheus and influx sinks.
func init() {
	_ = coremetrics.RegisterMetricsSink("prometheus", func(map[string]any) (coremetrics.MetricsSink, error) {
		return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
	})

	_ = coremetrics.RegisterMetricsSink("influx", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
