package mqtt

import "strings"

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "battsim"

// Command names accepted under <prefix>/<simulation>/cmd/.
const (
	CmdAcknowledge = "acknowledge"
	CmdAnomaly     = "anomaly"
	CmdSelect      = "select"
)

// SnapshotTopic is where snapshots of a simulation are published.
func SnapshotTopic(prefix, simulation string) string {
	return join(prefix, simulation, "snapshot")
}

// CommandFilter matches every command of a simulation.
func CommandFilter(prefix, simulation string) string {
	return join(prefix, simulation, "cmd", "+")
}

// CommandTopic is the topic of one command.
func CommandTopic(prefix, simulation, cmd string) string {
	return join(prefix, simulation, "cmd", cmd)
}

// ParseCommandTopic extracts the simulation and command of a command topic.
func ParseCommandTopic(prefix, topic string) (simulation, cmd string, ok bool) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	rest, found := strings.CutPrefix(topic, strings.TrimSuffix(prefix, "/")+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "cmd" || parts[0] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[0], parts[2], true
}

func join(prefix string, parts ...string) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.Join(parts, "/")
}

// StationTopic is where station views are published.
func StationTopic(prefix, station string) string {
	return join(prefix, station, "station")
}

// Match reports whether topic matches filter; only the single-level
// wildcard is supported.
func Match(filter, topic string) bool {
	fp := strings.Split(filter, "/")
	tp := strings.Split(topic, "/")
	if len(fp) != len(tp) {
		return false
	}
	for i := range fp {
		if fp[i] != "+" && fp[i] != tp[i] {
			return false
		}
	}
	return true
}
