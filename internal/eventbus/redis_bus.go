package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/TorratDev/Grace/pkg/id"
	logpkg "github.com/TorratDev/Grace/pkg/log"
)

// RedisBus publishes envelopes to Redis channels named
// "{pubsub}.{topic}". Fire-and-forget: subscriber delivery is Redis's
// problem, which matches the no-ack bus contract.
type RedisBus struct {
	client *redis.Client
	logger logpkg.Logger
	gen    *id.Source
}

// NewRedisBus connects a bus to the given Redis address.
func NewRedisBus(addr string, logger logpkg.Logger) *RedisBus {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &RedisBus{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger.With(logpkg.Component("eventbus-redis")),
		gen:    id.NewGenerator(),
	}
}

// Publish implements Bus.
func (b *RedisBus) Publish(ctx context.Context, pubsub, topic string, env Envelope) error {
	env.stamp(b.gen)
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if err := b.client.Publish(ctx, pubsub+"."+topic, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s.%s: %w", pubsub, topic, err)
	}
	return nil
}

// Close releases the client.
func (b *RedisBus) Close() error { return b.client.Close() }
