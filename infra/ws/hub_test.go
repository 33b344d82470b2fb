package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(filter string, buf int) *Client {
	return &Client{filter: filter, send: make(chan Message, buf), log: nil}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub(nil)
	c := testClient("", 1)
	hub.Register(c)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
	_, open := <-c.send
	assert.False(t, open, "send channel closed on unregister")

	hub.Unregister(c)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHubBroadcastFilters(t *testing.T) {
	hub := NewHub(nil)
	all := testClient("", 4)
	car := testClient("car", 4)
	station := testClient("station", 4)
	for _, c := range []*Client{all, car, station} {
		hub.Register(c)
	}

	hub.Broadcast(Message{Type: MessageSnapshot, Simulation: "car", Timestamp: time.Now()})

	assert.Len(t, all.send, 1)
	assert.Len(t, car.send, 1)
	assert.Len(t, station.send, 0)
}

func TestHubBroadcastDropsWhenFull(t *testing.T) {
	hub := NewHub(nil)
	c := testClient("", 1)
	hub.Register(c)

	hub.Broadcast(Message{Simulation: "a"})
	hub.Broadcast(Message{Simulation: "b"})

	require.Len(t, c.send, 1)
	msg := <-c.send
	assert.Equal(t, "a", msg.Simulation)
}
