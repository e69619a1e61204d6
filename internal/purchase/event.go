package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/payment"
)

// EventType tags BootCoin purchase envelopes on the inbound bus.
const EventType = "BootCoinPurchase"

// PurchaseEvent is the inbound message shape for one-sided purchases. The
// BootCoin amount is advisory; the credited amount is always recomputed from
// the effective buy rate.
type PurchaseEvent struct {
	WalletID        string `json:"walletId"`
	PaymentMethodID string `json:"paymentMethodId"`
	BootCoinAmount  string `json:"bootCoinAmount"`
	PaymentAmount   string `json:"paymentAmount"`
	PaymentType     string `json:"paymentType"`
	ClientTxID      string `json:"clientTxId"`
}

// EventHandler decodes BootCoinPurchase envelopes and runs the coordinator.
func (s *Service) EventHandler() func(ctx context.Context, payload json.RawMessage) error {
	return func(ctx context.Context, payload json.RawMessage) error {
		var evt PurchaseEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("decode purchase event: %w", err)
		}
		paymentType, err := payment.ParseType(evt.PaymentType)
		if err != nil {
			return err
		}
		amount, err := decimal.NewFromString(evt.PaymentAmount)
		if err != nil {
			return fmt.Errorf("invalid payment amount %q", evt.PaymentAmount)
		}
		_, err = s.Purchase(ctx, Input{
			WalletID:        evt.WalletID,
			PaymentType:     paymentType,
			PaymentMethodID: evt.PaymentMethodID,
			FiatAmount:      amount,
			ClientTxID:      evt.ClientTxID,
		})
		if errors.Is(err, ErrAlreadyProcessed) {
			return nil
		}
		return err
	}
}
