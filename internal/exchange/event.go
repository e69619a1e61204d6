package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boot-pay/boot_pay/internal/payment"
)

// EventType tags BootCoin exchange envelopes on the inbound bus.
const EventType = "BootCoinExchange"

// ExchangeEvent is the inbound message binding a seller to a petition and
// triggering settlement. Amount and buyer fields describe the existing
// petition; the authoritative values are the persisted record's.
type ExchangeEvent struct {
	PetitionID            string `json:"petitionId"`
	BootCoinAmount        string `json:"bootCoinAmount"`
	PaymentAmount         string `json:"paymentAmount"`
	BuyerPaymentType      string `json:"buyerPaymentType"`
	BuyerPaymentMethodID  string `json:"buyerPaymentMethodId"`
	SellerPaymentType     string `json:"sellerPaymentType"`
	SellerPaymentMethodID string `json:"sellerPaymentMethodId"`
	BuyerWalletID         string `json:"buyerWalletId"`
	SellerWalletID        string `json:"sellerWalletId"`
}

// EventHandler decodes BootCoinExchange envelopes, matches the seller onto the
// petition and settles. Redelivery is safe: matched petitions resume
// settlement and terminal petitions are left alone.
func (s *Service) EventHandler() func(ctx context.Context, payload json.RawMessage) error {
	return func(ctx context.Context, payload json.RawMessage) error {
		var evt ExchangeEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return fmt.Errorf("decode exchange event: %w", err)
		}

		p, err := s.petitions.Get(ctx, evt.PetitionID)
		if err != nil {
			return fmt.Errorf("petition %s: %w", evt.PetitionID, err)
		}
		if p.Terminal() {
			return nil
		}

		if p.Status == StatusOpen {
			sellerType, err := payment.ParseType(evt.SellerPaymentType)
			if err != nil {
				return err
			}
			if _, err := s.Match(ctx, p.ID, MatchInput{
				SellerWalletID:        evt.SellerWalletID,
				SellerPaymentType:     sellerType,
				SellerPaymentMethodID: evt.SellerPaymentMethodID,
			}); err != nil {
				return fmt.Errorf("match petition %s: %w", p.ID, err)
			}
		}

		if _, err := s.Settle(ctx, p.ID); err != nil {
			return fmt.Errorf("settle petition %s: %w", p.ID, err)
		}
		return nil
	}
}
