package bus

import (
	"context"
	"sync"
)

// MemorySource is a channel-backed source for tests and single-process use.
type MemorySource struct {
	ch     chan Envelope
	mu     sync.Mutex
	closed bool
}

// NewMemorySource constructs an in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{ch: make(chan Envelope, 64)}
}

// Receive blocks until an envelope is published or the context is cancelled.
func (s *MemorySource) Receive(ctx context.Context) (Envelope, error) {
	select {
	case <-ctx.Done():
		return Envelope{}, context.Canceled
	case env, ok := <-s.ch:
		if !ok {
			return Envelope{}, ErrClosed
		}
		return env, nil
	}
}

// Publish enqueues an envelope for delivery.
func (s *MemorySource) Publish(_ context.Context, env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.ch <- env
	return nil
}

// Close stops delivery; pending envelopes are still drained.
func (s *MemorySource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
