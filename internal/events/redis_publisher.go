package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Pub/sub channels.
const (
	TokenUpdateChannel = "updates:token"
	OrderUpdateChannel = "updates:order"
)

// RedisPublisher implements Publisher over Redis pub/sub with JSON
// payloads. Delivery is fire-and-forget: subscribers that are offline
// miss events, which is acceptable because consumers can re-read state
// from the query services.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Compile-time interface check.
var _ Publisher = (*RedisPublisher)(nil)

func (p *RedisPublisher) PublishTokenUpdate(ctx context.Context, ev TokenUpdateEvent) error {
	return p.publish(ctx, TokenUpdateChannel, ev)
}

func (p *RedisPublisher) PublishOrderUpdate(ctx context.Context, ev OrderUpdateEvent) error {
	return p.publish(ctx, OrderUpdateChannel, ev)
}

func (p *RedisPublisher) publish(ctx context.Context, channel string, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", channel, err)
	}
	if err := p.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}
