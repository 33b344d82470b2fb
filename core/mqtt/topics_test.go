package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "battsim/car/snapshot", SnapshotTopic("", "car"))
	assert.Equal(t, "lab/car/snapshot", SnapshotTopic("lab/", "car"))
	assert.Equal(t, "lab/station/cmd/+", CommandFilter("lab", "station"))
	assert.Equal(t, "lab/station/cmd/select", CommandTopic("lab", "station", CmdSelect))
}

func TestParseCommandTopic(t *testing.T) {
	sim, cmd, ok := ParseCommandTopic("lab", "lab/car/cmd/acknowledge")
	assert.True(t, ok)
	assert.Equal(t, "car", sim)
	assert.Equal(t, CmdAcknowledge, cmd)

	for _, topic := range []string{"lab/car/snapshot", "other/car/cmd/x", "lab/car/cmd/", "lab/car/cmd/a/b"} {
		_, _, ok := ParseCommandTopic("lab", topic)
		assert.False(t, ok, topic)
	}
	_, _, ok = ParseCommandTopic("", "battsim/car/cmd/anomaly")
	assert.True(t, ok)
}

func TestMatch(t *testing.T) {
	assert.True(t, Match("battsim/car/cmd/+", "battsim/car/cmd/anomaly"))
	assert.False(t, Match("battsim/car/cmd/+", "battsim/van/cmd/anomaly"))
	assert.False(t, Match("battsim/car/cmd/+", "battsim/car/cmd"))
	assert.Equal(t, "battsim/station/station", StationTopic("", "station"))
}
