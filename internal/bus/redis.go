package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"battrack/internal/config"
	"battrack/internal/faults"
)

// retainedKeyPrefix stores the last retained payload per topic, emulating
// broker-side retention over plain pub/sub.
const retainedKeyPrefix = "retained:"

// RedisBus carries messages over Redis pub/sub channels.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewRedisBus connects to the configured Redis instance and verifies it
// answers before returning.
func NewRedisBus(ctx context.Context, cfg config.Bus, logger *slog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, faults.Wrap(faults.ErrTransient, "bus", "connect", "ping "+cfg.RedisAddr, err)
	}
	logger.Info("connected to message bus", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return &RedisBus{client: client, logger: logger}, nil
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload []byte, retained bool) error {
	if retained {
		if err := b.client.Set(ctx, retainedKeyPrefix+topic, payload, 0).Err(); err != nil {
			return faults.Wrap(faults.ErrTransient, "bus", "publish", "retain "+topic, err)
		}
	}
	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		return faults.Wrap(faults.ErrTransient, "bus", "publish", "publish "+topic, err)
	}
	return nil
}

// Subscribe registers the handler for the given topics and starts the
// receive loop. Retained payloads are replayed to the handler first.
func (b *RedisBus) Subscribe(ctx context.Context, topics []string, handler Handler) error {
	sub := b.client.Subscribe(ctx, topics...)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return faults.Wrap(faults.ErrTransient, "bus", "subscribe", "subscribe", err)
	}
	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	for _, topic := range topics {
		payload, err := b.client.Get(ctx, retainedKeyPrefix+topic).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			b.logger.Warn("retained replay failed", "topic", topic, "error", err)
			continue
		}
		handler(ctx, Message{Topic: topic, Payload: payload})
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler(ctx, Message{Topic: msg.Channel, Payload: []byte(msg.Payload)})
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
	return b.client.Close()
}
