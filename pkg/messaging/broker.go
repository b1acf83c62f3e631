package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// EventsChannel carries workflow events to the delivery layer.
const EventsChannel = "doarbem:eventos"

// Message is the envelope published to delivery channels.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
