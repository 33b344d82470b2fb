package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `simulations:
  - preset: car
  - preset: car-charts
    name: dashboard
    interval_ms: 500
    anomaly:
      id: spike
      trigger_after_ms: 5000
      overrides:
        voltage:
          op: set
          value: 700
station:
  enabled: true
  window: 10
mqtt:
  enabled: true
  broker: "tcp://broker:1883"
  topic_prefix: lab
  qos:
    snapshot: 1
metrics:
  prometheus_addr: ":2112"
  sinks:
    - type: prometheus
    - type: influx
      conf:
        url: http://influx:8086
        bucket: battsim
http:
  enabled: true
  addr: ":9000"
  token: secret
logging:
  level: debug
  format: console
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	sims, err := cfg.Resolve()
	require.NoError(t, err)
	require.Len(t, sims, 2)
	assert.Equal(t, "car", sims[0].Name)
	assert.Equal(t, "dashboard", sims[1].Name)
	assert.Equal(t, 500, sims[1].IntervalMS)
	require.NotNil(t, sims[1].Anomaly)
	assert.Equal(t, "spike", sims[1].Anomaly.ID)
	assert.Equal(t, 700.0, sims[1].Anomaly.Overrides["voltage"].Value)

	assert.True(t, cfg.Station.Enabled)
	assert.Equal(t, 10, cfg.Station.Window)
	assert.Len(t, cfg.Station.Vehicles, 8)

	assert.Equal(t, "tcp://broker:1883", cfg.MQTT.Broker)
	assert.Equal(t, "lab", cfg.MQTT.TopicPrefix)
	assert.Equal(t, byte(1), cfg.MQTT.QoS["snapshot"])

	require.Len(t, cfg.Metrics.Sinks, 2)
	assert.True(t, cfg.Metrics.Prometheus())
	assert.Equal(t, "battsim", cfg.Metrics.Sinks[1].Conf["bucket"])
	assert.Equal(t, ":2112", cfg.Metrics.PrometheusAddr)

	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "secret", cfg.HTTP.Token)
	assert.Equal(t, "debug", cfg.Logging.Options().Level)
	assert.Equal(t, "console", cfg.Logging.Options().Format)
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := writeFile(t, "config.json", `{"mqtt":{"broker":"tcp://file:1883"},"logging":{"level":"info"}}`)
	t.Setenv("K_MQTT__BROKER", "tcp://env:1883")
	t.Setenv("K_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tcp://env:1883", cfg.MQTT.Broker)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Len(t, cfg.Simulations, 1)
	assert.Equal(t, "car", cfg.Simulations[0].Preset)
	assert.False(t, cfg.Station.Enabled)
	assert.False(t, cfg.HTTP.Enabled)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "battsim", cfg.MQTT.TopicPrefix)
	assert.NotEmpty(t, cfg.MQTT.ClientID)
}

func TestLoadStationOnly(t *testing.T) {
	path := writeFile(t, "station.yml", "station:\n  enabled: true\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Simulations)
	assert.Equal(t, "station", cfg.Station.Name)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		name string
		data string
	}{
		"format":        {"config.toml", "x = 1"},
		"preset":        {"c.yaml", "simulations:\n  - preset: bus\n"},
		"duplicate":     {"c.yaml", "simulations:\n  - preset: car\n  - preset: car\n"},
		"station clash": {"c.yaml", "simulations:\n  - preset: car\n    name: station\nstation:\n  enabled: true\n"},
		"qos":           {"c.yaml", "mqtt:\n  enabled: true\n  qos:\n    snapshot: 3\n"},
		"sink type":     {"c.yaml", "metrics:\n  sinks:\n    - conf: {}\n"},
		"http addr":     {"c.yaml", "http:\n  enabled: true\n  addr: nope\n"},
		"log level":     {"c.yaml", "logging:\n  level: loud\n"},
		"log format":    {"c.yaml", "logging:\n  format: xml\n"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, tc.name, tc.data))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
