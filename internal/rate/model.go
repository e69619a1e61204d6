package rate

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate is an effective-dated BootCoin exchange rate. Rates are immutable once
// stored; repricing appends a new row with a later effective timestamp.
type Rate struct {
	ID          string
	EffectiveAt time.Time
	BuyRate     decimal.Decimal
	SellRate    decimal.Decimal
}
