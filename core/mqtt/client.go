package mqtt

// MessageHandler receives the topic and payload of an incoming message.
type MessageHandler func(topic string, payload []byte)

// Client publishes JSON documents and subscribes to command topics.
type Client interface {
	// Publish marshals v to JSON and publishes it on topic.
	Publish(topic string, v any) error
	// Subscribe registers h for topic; subscriptions survive reconnects.
	Subscribe(topic string, h MessageHandler) error
	Disconnect()
}
