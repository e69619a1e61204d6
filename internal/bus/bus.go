package bus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// ErrClosed indicates the source was shut down and no further envelopes will
// arrive.
var ErrClosed = errors.New("bus closed")

// Envelope wraps an inbound event with its type tag for handler routing.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Source yields inbound envelopes. Receive blocks until an envelope arrives,
// the context is cancelled, or the source is closed.
type Source interface {
	Receive(ctx context.Context) (Envelope, error)
}

// HandlerFunc processes one decoded envelope payload. Handlers must be
// idempotent: the bus delivers at least once.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Consumer routes envelopes from a source to registered handlers.
type Consumer struct {
	source   Source
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

// NewConsumer builds a consumer over the given source.
func NewConsumer(source Source, logger *slog.Logger) *Consumer {
	return &Consumer{source: source, handlers: make(map[string]HandlerFunc), logger: logger}
}

// Handle registers the handler for an envelope type.
func (c *Consumer) Handle(eventType string, handler HandlerFunc) {
	c.handlers[eventType] = handler
}

// Run consumes envelopes until the context is cancelled or the source closes.
// Handler errors are logged, never fatal: a poison message must not stall the
// stream.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		env, err := c.source.Receive(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed) {
				return nil
			}
			c.logger.Error("bus receive", "error", err)
			continue
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			c.logger.Warn("no handler for event type", "type", env.Type)
			continue
		}

		if err := handler(ctx, env.Payload); err != nil {
			c.logger.Error("event handler failed", "type", env.Type, "error", err)
		}
	}
}
