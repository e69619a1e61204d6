package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// InboundList is the Redis list producing services push inbound events onto.
const InboundList = "bootpay:events:inbound"

const popTimeout = 5 * time.Second

// RedisSource consumes JSON envelopes from a Redis list with blocking pops.
type RedisSource struct {
	client *redis.Client
	list   string
}

// NewRedisSource constructs a source reading from the inbound event list.
func NewRedisSource(client *redis.Client) *RedisSource {
	return &RedisSource{client: client, list: InboundList}
}

// Receive blocks until an envelope is available or the context is cancelled.
func (s *RedisSource) Receive(ctx context.Context) (Envelope, error) {
	for {
		vals, err := s.client.BRPop(ctx, popTimeout, s.list).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Pop timed out with an empty list; keep waiting.
				continue
			}
			if ctx.Err() != nil {
				return Envelope{}, context.Canceled
			}
			return Envelope{}, fmt.Errorf("brpop %s: %w", s.list, err)
		}

		var env Envelope
		if err := json.Unmarshal([]byte(vals[1]), &env); err != nil {
			return Envelope{}, fmt.Errorf("decode envelope: %w", err)
		}
		return env, nil
	}
}

// Publish pushes an envelope onto the inbound list. Used by tests and by
// sibling services running in the same process.
func (s *RedisSource) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return s.client.LPush(ctx, s.list, payload).Err()
}
