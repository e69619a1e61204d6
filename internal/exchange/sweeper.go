package exchange

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper fails petitions stuck in SETTLING beyond the settle timeout. A
// petition is never left settling indefinitely: each pass compensates any
// confirmed fiat leg and drives the petition to FAILED, retrying previously
// escalated compensations.
type Sweeper struct {
	service  *Service
	timeout  time.Duration
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper constructs a settlement sweeper.
func NewSweeper(service *Service, timeout, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{service: service, timeout: timeout, interval: interval, logger: logger}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("settlement sweep", "error", err)
			}
		}
	}
}

// Sweep fails every timed-out SETTLING petition and returns how many it
// transitioned.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.timeout)
	stuck, err := s.service.petitions.ListSettlingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, p := range stuck {
		if _, err := s.service.fail(ctx, p, reasonSettleTimeout); err != nil {
			// Escalations stay SETTLING and are retried next pass.
			s.logger.Error("sweep petition", "petition_id", p.ID, "error", err)
			continue
		}
		swept++
	}
	return swept, nil
}
