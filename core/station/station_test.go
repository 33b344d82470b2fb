package station

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }

var t0 = time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

func newStation(t *testing.T) (*Station, *clocktesting.FakeClock, <-chan Snapshot) {
	t.Helper()
	fc := clocktesting.NewFakeClock(t0)
	s, err := New(DefaultConfig(), Options{Clock: fc, Rand: halfRand{}})
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s, fc, s.Subscribe()
}

func tick(t *testing.T, fc *clocktesting.FakeClock, sub <-chan Snapshot, n uint64) Snapshot {
	t.Helper()
	fc.Step(time.Second)
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-sub:
			require.True(t, ok)
			if snap.Ticks >= n {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for tick %d", n)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Len(t, cfg.Vehicles, 8)
	assert.Equal(t, "1", cfg.Vehicles[0].ID)
	assert.Equal(t, "Vehicle 8", cfg.Vehicles[7].Name)
	assert.Equal(t, 34.0, cfg.Vehicles[7].SoCBase)
	assert.Equal(t, 20, cfg.Window)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Vehicles = append(cfg.Vehicles, VehicleConfig{ID: "1"})
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SeedCount = 30
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.IntervalMS = -1
	assert.Error(t, cfg.Validate())
}

func TestStationSeeds(t *testing.T) {
	s, _, _ := newStation(t)
	snap := s.Snapshot()
	require.Len(t, snap.Vehicles, 8)
	v1, ok := snap.Vehicle("1")
	require.True(t, ok)
	assert.Equal(t, []float64{15, 15, 15, 15, 15}, v1.History.Samples)
	assert.Equal(t, 15.0, v1.SoC)
	assert.Equal(t, "ON", v1.OverchargeProtection)
	assert.Equal(t, ChargeFast, v1.ChargeState)
	assert.Equal(t, 1, v1.BatteryGrade)
	assert.Equal(t, "1", snap.Selected)
	assert.False(t, snap.AnomalyDetected)
	assert.Equal(t, 450.0, snap.Battery.Voltage)
}

func TestStationTicksAndWindow(t *testing.T) {
	s, fc, sub := newStation(t)
	snap := tick(t, fc, sub, 1)
	v1, _ := snap.Vehicle("1")
	require.Len(t, v1.History.Samples, 6)
	assert.Equal(t, 15.01, v1.SoC)
	assert.Equal(t, 30.0, snap.Battery.MaxTemp)
	assert.Equal(t, 12.5, snap.Battery.MinTemp)

	for n := uint64(2); n <= 25; n++ {
		snap = tick(t, fc, sub, n)
		for _, v := range snap.Vehicles {
			assert.LessOrEqual(t, len(v.History.Samples), DefaultWindow)
			assert.Equal(t, len(v.History.Samples), len(v.History.Timestamps))
		}
	}
	v1, _ = s.Snapshot().Vehicle("1")
	assert.Len(t, v1.History.Samples, DefaultWindow)
	assert.InDelta(t, 15.25, v1.SoC, 1e-9)
}

func TestStationRepeatedSelectionRaisesAlert(t *testing.T) {
	s, fc, sub := newStation(t)

	triggered, err := s.Select("3")
	require.NoError(t, err)
	assert.False(t, triggered)

	triggered, err = s.Select("3")
	require.NoError(t, err)
	assert.True(t, triggered)

	snap := s.Snapshot()
	assert.True(t, snap.AnomalyDetected)
	assert.Equal(t, "3", snap.Selected)
	v3, _ := snap.Vehicle("3")
	assert.True(t, v3.AnomalyDetected)
	assert.Equal(t, "OFF", v3.OverchargeProtection)
	assert.Equal(t, ChargeUltraFast, v3.ChargeState)
	assert.Equal(t, 3, v3.BatteryGrade)
	assert.True(t, v3.History.Frozen)
	frozen := v3.History.Samples

	after := tick(t, fc, sub, 1)
	v3, _ = after.Vehicle("3")
	assert.Equal(t, frozen, v3.History.Samples, "frozen vehicle stops charging")
	v2, _ := after.Vehicle("2")
	assert.Len(t, v2.History.Samples, 6)
}

func TestStationDifferentSelectionClearsAlert(t *testing.T) {
	s, _, _ := newStation(t)
	_, _ = s.Select("1")
	_, _ = s.Select("1")
	require.True(t, s.Snapshot().AnomalyDetected)

	triggered, err := s.Select("2")
	require.NoError(t, err)
	assert.False(t, triggered)
	snap := s.Snapshot()
	assert.False(t, snap.AnomalyDetected)
	assert.Equal(t, "2", snap.Selected)
	assert.Equal(t, 1, snap.Alerts)
	v1, _ := snap.Vehicle("1")
	assert.True(t, v1.AnomalyDetected, "vehicle keeps its anomalous attributes")
	assert.False(t, s.Telemetry().Snapshot().AnomalyActive)
}

func TestStationUnknownVehicle(t *testing.T) {
	s, _, _ := newStation(t)
	_, err := s.Select("42")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownVehicle))
}

func TestStationStop(t *testing.T) {
	s, _, sub := newStation(t)
	s.Stop()
	s.Stop()
	for range sub {
	}
	_, err := s.Select("1")
	require.NoError(t, err)
	_, err = s.Select("1")
	assert.Error(t, err)
}
