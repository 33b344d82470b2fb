package metrics

import "github.com/kilianp07/battsim/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr enables the /metrics endpoint when set, e.g. ":2112".
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`
}

// Prometheus reports whether a prometheus sink is configured.
func (c Config) Prometheus() bool {
	for _, s := range c.Sinks {
		if s.Type == "prometheus" {
			return true
		}
	}
	return false
}
