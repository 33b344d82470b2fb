package telemetry

import "fmt"

// Phase is the simulator lifecycle stage.
type Phase int

const (
	PhaseNominal Phase = iota
	PhaseAnomalous
	PhaseRecovering
)

func (p Phase) String() string {
	switch p {
	case PhaseNominal:
		return "nominal"
	case PhaseAnomalous:
		return "anomalous"
	case PhaseRecovering:
		return "recovering"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "nominal":
		*p = PhaseNominal
	case "anomalous":
		*p = PhaseAnomalous
	case "recovering":
		*p = PhaseRecovering
	default:
		return fmt.Errorf("unknown phase %q", string(b))
	}
	return nil
}
