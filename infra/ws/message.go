package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageSnapshot MessageType = "snapshot"
	MessageStation  MessageType = "station"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type       MessageType `json:"type"`
	Simulation string      `json:"simulation"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       any         `json:"data"`
}
