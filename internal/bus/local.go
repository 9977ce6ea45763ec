package bus

import (
	"context"
	"sync"
)

// LocalBus is a process-local bus used by tests and the operator console.
// Publishes dispatch synchronously to matching subscribers.
type LocalBus struct {
	mu       sync.Mutex
	retained map[string][]byte
	subs     []localSub
	closed   bool
}

type localSub struct {
	topics  map[string]bool
	handler Handler
}

func NewLocalBus() *LocalBus {
	return &LocalBus{retained: make(map[string][]byte)}
}

func (b *LocalBus) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	b.mu.Lock()
	if retained {
		stored := make([]byte, len(payload))
		copy(stored, payload)
		b.retained[topic] = stored
	}
	var handlers []Handler
	for _, sub := range b.subs {
		if sub.topics[topic] {
			handlers = append(handlers, sub.handler)
		}
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(ctx, Message{Topic: topic, Payload: payload})
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, topics []string, handler Handler) error {
	set := make(map[string]bool, len(topics))
	for _, topic := range topics {
		set[topic] = true
	}

	b.mu.Lock()
	b.subs = append(b.subs, localSub{topics: set, handler: handler})
	var replay []Message
	for _, topic := range topics {
		if payload, ok := b.retained[topic]; ok {
			replay = append(replay, Message{Topic: topic, Payload: payload})
		}
	}
	b.mu.Unlock()

	for _, msg := range replay {
		handler(ctx, msg)
	}
	return nil
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
	b.closed = true
	return nil
}

// Retained returns the stored retained payload for a topic, for tests.
func (b *LocalBus) Retained(topic string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	payload, ok := b.retained[topic]
	return payload, ok
}
