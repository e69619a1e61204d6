package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OutboundList is the Redis list downstream services consume outcome events from.
const OutboundList = "bootpay:events:outbound"

// RedisPublisher pushes outcome events onto a Redis list.
type RedisPublisher struct {
	client *redis.Client
	list   string
}

// NewRedisPublisher constructs a Redis-backed publisher.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, list: OutboundList}
}

// Publish serializes the event and appends it to the outbound list.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.client.LPush(ctx, p.list, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
