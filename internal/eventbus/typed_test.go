package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct{ Seq int }

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[sample]()
	ch := bus.Subscribe()
	bus.Publish(sample{Seq: 1})
	assert.Equal(t, 1, (<-ch).Seq)
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok, "unsubscribe closes the channel")
}

func TestSlowSubscriberMissesEvents(t *testing.T) {
	bus := NewTypedWithBuffer[int](2)
	ch := bus.Subscribe()
	for i := 0; i < 5; i++ {
		bus.Publish(i)
	}
	assert.Equal(t, 0, <-ch)
	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected event %d", v)
	default:
	}
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok)
	_, ok = <-ch2
	assert.False(t, ok)

	assert.NotPanics(t, func() { bus.Unsubscribe(ch1) })
	assert.NotPanics(t, bus.Close)
}

func TestSubscribeAfterClose(t *testing.T) {
	bus := NewTyped[sample]()
	bus.Close()
	ch := bus.Subscribe()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, bus.Subscribers())
	bus.Publish(sample{})
}

func TestSubscribersCount(t *testing.T) {
	bus := NewTyped[string]()
	a := bus.Subscribe()
	b := bus.Subscribe()
	assert.Equal(t, 2, bus.Subscribers())
	bus.Unsubscribe(a)
	assert.Equal(t, 1, bus.Subscribers())
	bus.Unsubscribe(b)
	assert.Equal(t, 0, bus.Subscribers())
}
