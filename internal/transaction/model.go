package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable audit record of a completed leg: a one-sided
// purchase or a settled exchange. Append-only.
type Transaction struct {
	ID             string
	PetitionID     string // empty for plain purchases
	BuyerWalletID  string
	SellerWalletID string // empty for plain purchases
	FiatAmount     decimal.Decimal
	BootCoinAmount decimal.Decimal
	PaymentType    string
	CreatedAt      time.Time
}
