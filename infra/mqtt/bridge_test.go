package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	coremqtt "github.com/kilianp07/battsim/core/mqtt"
	"github.com/kilianp07/battsim/core/scenario"
	"github.com/kilianp07/battsim/core/station"
	"github.com/kilianp07/battsim/core/telemetry"
)

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

func startPreset(t *testing.T, name string) (*telemetry.Handle, *clocktesting.FakeClock) {
	t.Helper()
	cfg, err := scenario.Preset(name)
	require.NoError(t, err)
	fc := clocktesting.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	h, err := telemetry.Start(cfg, telemetry.WithClock(fc), telemetry.WithRand(constRand(0)))
	require.NoError(t, err)
	t.Cleanup(h.Stop)
	return h, fc
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestBridgePublishesSnapshots(t *testing.T) {
	h, fc := startPreset(t, scenario.PresetCar)
	mc := NewMemoryClient()
	b := NewBridge(mc, "lab")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Attach(ctx, "car", h))
	assert.Error(t, b.Attach(ctx, "car", h), "duplicate attach")

	fc.Step(time.Second)
	topic := coremqtt.SnapshotTopic("lab", "car")
	eventually(t, func() bool { return mc.Count(topic) >= 1 })

	raw, _ := mc.Last(topic)
	var snap telemetry.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.Equal(t, "car", snap.Simulation)
	assert.Equal(t, uint64(1), snap.Ticks)

	cancel()
	b.Wait()
}

func TestBridgeCommands(t *testing.T) {
	h, _ := startPreset(t, scenario.PresetCar)
	mc := NewMemoryClient()
	b := NewBridge(mc, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.Attach(ctx, "car", h))

	n := mc.Deliver("battsim/car/cmd/anomaly", nil)
	assert.Equal(t, 1, n)
	snap := h.Snapshot()
	assert.True(t, snap.AnomalyActive)
	assert.Equal(t, "car-overvoltage", snap.AnomalyID)

	require.NoError(t, b.Dispatch("battsim/car/cmd/acknowledge", nil))
	assert.False(t, h.Snapshot().AnomalyActive)

	spec := `{"id":"hot","overrides":{"max_temp":{"op":"add","value":50}}}`
	require.NoError(t, b.Dispatch("battsim/car/cmd/anomaly", []byte(spec)))
	v, _ := h.Snapshot().Latest("max_temp")
	assert.Equal(t, 130.0, v, "added to the overridden sample")

	err := b.Dispatch("battsim/car/cmd/anomaly", []byte(`{"overrides":{"current":{"value":1}}}`))
	assert.True(t, telemetry.IsConfigurationError(err))
	assert.Error(t, b.Dispatch("battsim/car/cmd/anomaly", []byte(`{`)))
	assert.ErrorIs(t, b.Dispatch("battsim/car/cmd/reboot", nil), coremqtt.ErrUnknownCommand)
	assert.ErrorIs(t, b.Dispatch("battsim/car/cmd/select", []byte("1")), coremqtt.ErrUnknownCommand)
	assert.Error(t, b.Dispatch("battsim/van/cmd/acknowledge", nil))
	assert.Error(t, b.Dispatch("elsewhere", nil))
}

func TestBridgeStation(t *testing.T) {
	fc := clocktesting.NewFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	st, err := station.New(station.DefaultConfig(), station.Options{Clock: fc, Rand: constRand(0.5)})
	require.NoError(t, err)
	t.Cleanup(st.Stop)

	mc := NewMemoryClient()
	b := NewBridge(mc, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, b.AttachStation(ctx, st))

	require.NoError(t, b.Dispatch("battsim/station/cmd/select", []byte("4")))
	require.NoError(t, b.Dispatch("battsim/station/cmd/select", []byte(`"4"`)))
	assert.True(t, st.Snapshot().AnomalyDetected)
	require.NoError(t, b.Dispatch("battsim/station/cmd/select", []byte(`{"id":5}`)))
	assert.Equal(t, "5", st.Snapshot().Selected)

	err = b.Dispatch("battsim/station/cmd/select", []byte("99"))
	assert.True(t, errors.Is(err, station.ErrUnknownVehicle))

	topic := coremqtt.StationTopic(coremqtt.DefaultPrefix, "station")
	eventually(t, func() bool { return mc.Count(topic) >= 3 })
	raw, _ := mc.Last(topic)
	var view station.Snapshot
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Len(t, view.Vehicles, 8)
}

func TestVehicleID(t *testing.T) {
	assert.Equal(t, "3", vehicleID([]byte(" 3 \n")))
	assert.Equal(t, "ev-3", vehicleID([]byte(`"ev-3"`)))
	assert.Equal(t, "7", vehicleID([]byte(`{"id":"7"}`)))
	assert.Equal(t, "7", vehicleID([]byte(`{"id":7}`)))
}

func TestMemoryClientFailures(t *testing.T) {
	mc := NewMemoryClient()
	mc.FailTopic["x"] = true
	assert.Error(t, mc.Publish("x", 1))
	assert.Error(t, mc.Publish("y", func() {}))
	require.NoError(t, mc.Publish("y", 1))
	assert.Equal(t, 1, mc.Count("y"))
	assert.Equal(t, 0, mc.Deliver("nobody/listens", nil))
}
