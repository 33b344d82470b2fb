package station

import (
	"math"
	"time"

	"github.com/kilianp07/battsim/core/telemetry"
)

// VehicleStatus is the per-vehicle view of a station snapshot.
type VehicleStatus struct {
	ID                   string                    `json:"id"`
	Name                 string                    `json:"name"`
	SoC                  float64                   `json:"soc"`
	History              telemetry.ChannelSnapshot `json:"history"`
	AnomalyDetected      bool                      `json:"anomaly_detected"`
	OverchargeProtection string                    `json:"overcharge_protection"`
	ChargeState          string                    `json:"charge_state"`
	BatteryGrade         int                       `json:"battery_grade"`
}

// BatteryInfo holds the shared station battery readings.
type BatteryInfo struct {
	MaxTemp float64 `json:"max_temp"`
	MinTemp float64 `json:"min_temp"`
	Voltage float64 `json:"voltage"`
}

// Snapshot is an immutable station view.
type Snapshot struct {
	Station         string          `json:"station"`
	Seq             uint64          `json:"seq"`
	Ticks           uint64          `json:"ticks"`
	Selected        string          `json:"selected"`
	AnomalyDetected bool            `json:"anomaly_detected"`
	Alerts          int             `json:"alerts"`
	Vehicles        []VehicleStatus `json:"vehicles"`
	Battery         BatteryInfo     `json:"battery"`
	Time            time.Time       `json:"time"`
}

// Vehicle returns the status of the given vehicle.
func (s Snapshot) Vehicle(id string) (VehicleStatus, bool) {
	for _, v := range s.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return VehicleStatus{}, false
}

func (s *Station) snapshotLocked(t telemetry.Snapshot) Snapshot {
	out := Snapshot{
		Station:         s.cfg.Name,
		Seq:             t.Seq,
		Ticks:           t.Ticks,
		Selected:        s.selected,
		AnomalyDetected: s.alert,
		Alerts:          s.alerts,
		Vehicles:        make([]VehicleStatus, 0, len(s.order)),
		Time:            t.Time,
	}
	for _, v := range s.order {
		hist, _ := t.Channel(SoCChannel(v.cfg.ID))
		latest, _ := hist.Latest()
		st := VehicleStatus{
			ID:                   v.cfg.ID,
			Name:                 v.cfg.Name,
			SoC:                  round2(latest),
			History:              hist,
			OverchargeProtection: "ON",
			ChargeState:          ChargeFast,
			BatteryGrade:         1,
		}
		if v.anomalous {
			st.AnomalyDetected = true
			st.OverchargeProtection = "OFF"
			st.ChargeState = ChargeUltraFast
			st.BatteryGrade = 3
		}
		out.Vehicles = append(out.Vehicles, st)
	}
	maxT, _ := t.Latest(ChannelMaxTemp)
	minT, _ := t.Latest(ChannelMinTemp)
	volt, _ := t.Latest(ChannelVoltage)
	out.Battery = BatteryInfo{MaxTemp: round2(maxT), MinTemp: round2(minT), Voltage: volt}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
