package bus

import "context"

// Message is one delivery from the bus.
type Message struct {
	Topic   string
	Payload []byte
}

// Handler consumes one message. Handlers run on the bus's receive goroutine
// and must not block indefinitely.
type Handler func(ctx context.Context, msg Message)

// Bus carries the command and status traffic between the line tooling and
// the daemon. Retained publishes survive the publisher: a later subscriber
// receives the last retained payload for the topic on subscribe.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte, retained bool) error
	Subscribe(ctx context.Context, topics []string, handler Handler) error
	Close() error
}
