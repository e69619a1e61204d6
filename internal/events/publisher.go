package events

import (
	"context"
	"log/slog"
)

const (
	// KindPurchaseCompleted signals a one-sided purchase credited a wallet.
	KindPurchaseCompleted = "purchase_completed"
	// KindExchangeSettled signals both legs of an exchange confirmed.
	KindExchangeSettled = "exchange_settled"
	// KindExchangeFailed signals a failed (and, where needed, compensated) exchange.
	KindExchangeFailed = "exchange_failed"
	// KindSettlementEscalation signals compensation itself failed and an
	// operator must reconcile. Never emitted silently.
	KindSettlementEscalation = "settlement_escalation"
)

// Event is an outcome notification for downstream services.
type Event struct {
	Kind    string            `json:"kind"`
	Subject string            `json:"subject"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Publisher delivers outcome events to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LoggerPublisher writes outcome events to the structured logger. Used in
// tests and single-process deployments.
type LoggerPublisher struct {
	logger *slog.Logger
}

// NewLoggerPublisher constructs a logging publisher.
func NewLoggerPublisher(logger *slog.Logger) *LoggerPublisher {
	return &LoggerPublisher{logger: logger}
}

// Publish writes the event to the structured logger.
func (p *LoggerPublisher) Publish(_ context.Context, event Event) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("outcome event", "kind", event.Kind, "subject", event.Subject, "fields", event.Fields)
	return nil
}
