package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"

	coremqtt "github.com/kilianp07/battsim/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MemoryClient is an in-process Client used in tests and headless runs.
type MemoryClient struct {
	mu        sync.Mutex
	Messages  map[string][][]byte
	FailTopic map[string]bool
	handlers  map[string]coremqtt.MessageHandler
}

var _ coremqtt.Client = (*MemoryClient)(nil)

// NewMemoryClient creates an empty MemoryClient.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		Messages:  make(map[string][][]byte),
		FailTopic: make(map[string]bool),
		handlers:  make(map[string]coremqtt.MessageHandler),
	}
}

// Publish records the encoded message or fails if configured to.
func (m *MemoryClient) Publish(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailTopic[topic] {
		return fmt.Errorf("publish %s failed", topic)
	}
	m.Messages[topic] = append(m.Messages[topic], payload)
	return nil
}

// Subscribe registers h for the filter.
func (m *MemoryClient) Subscribe(filter string, h coremqtt.MessageHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[filter] = h
	return nil
}

// Deliver dispatches payload to every handler whose filter matches topic
// and returns the number of handlers called.
func (m *MemoryClient) Deliver(topic string, payload []byte) int {
	m.mu.Lock()
	var hs []coremqtt.MessageHandler
	for filter, h := range m.handlers {
		if coremqtt.Match(filter, topic) {
			hs = append(hs, h)
		}
	}
	m.mu.Unlock()
	for _, h := range hs {
		h(topic, payload)
	}
	return len(hs)
}

// Last returns the latest payload published on topic.
func (m *MemoryClient) Last(topic string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.Messages[topic]
	if len(msgs) == 0 {
		return nil, false
	}
	return msgs[len(msgs)-1], true
}

// Count returns the number of payloads published on topic.
func (m *MemoryClient) Count(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages[topic])
}

// Disconnect is a no-op.
func (m *MemoryClient) Disconnect() {}
