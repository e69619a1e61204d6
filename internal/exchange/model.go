package exchange

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/payment"
)

// Status is the petition lifecycle state. Transitions are driven exclusively
// by the coordinator; SETTLED and FAILED are terminal.
type Status string

const (
	// StatusOpen: petition created, no seller bound yet.
	StatusOpen Status = "OPEN"
	// StatusMatched: a counterparty is bound; both payment methods are known.
	StatusMatched Status = "MATCHED"
	// StatusSettling: legs dispatched, not both confirmed.
	StatusSettling Status = "SETTLING"
	// StatusSettled: both legs confirmed, balances moved, audit written.
	StatusSettled Status = "SETTLED"
	// StatusFailed: a leg failed or the petition timed out; any confirmed leg
	// has been compensated.
	StatusFailed Status = "FAILED"
)

// Petition is a user's intent to buy BootCoin for fiat, matched against a
// selling counterparty. The saga's whole state lives here so a crash mid
// settlement resumes from the persisted record.
type Petition struct {
	ID                    string
	BootCoinAmount        decimal.Decimal
	FiatAmount            decimal.Decimal
	BuyerWalletID         string
	SellerWalletID        string
	BuyerPaymentType      payment.Type
	BuyerPaymentMethodID  string
	SellerPaymentType     payment.Type
	SellerPaymentMethodID string
	// LockedSellRate is the sell rate captured at match time; it settles the
	// petition under the lock-at-match policy.
	LockedSellRate decimal.Decimal
	Status         Status
	// FiatConfirmed records that the buyer-pays-seller leg has settled. It is
	// persisted before the BootCoin leg runs so recovery knows what to refund.
	FiatConfirmed bool
	// FailureReason is written when a failure path claims the record, before
	// the terminal write, so concurrent settlement writes lose the version race.
	FailureReason string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Terminal reports whether the petition can no longer transition.
func (p Petition) Terminal() bool {
	return p.Status == StatusSettled || p.Status == StatusFailed
}

// BuyerMethod returns the buyer's fiat payment method.
func (p Petition) BuyerMethod() payment.Method {
	return payment.Method{Type: p.BuyerPaymentType, ID: p.BuyerPaymentMethodID}
}

// SellerMethod returns the seller's fiat payment method.
func (p Petition) SellerMethod() payment.Method {
	return payment.Method{Type: p.SellerPaymentType, ID: p.SellerPaymentMethodID}
}
