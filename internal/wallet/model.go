package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// StatusActive marks a wallet usable for purchases and exchanges.
	StatusActive = "active"
	// StatusInactive marks a deactivated wallet. Wallets are never deleted.
	StatusInactive = "inactive"
)

// Wallet is a BootCoin balance holder. Fiat settlement runs through whichever
// payment method the wallet is linked to (bank account, Yanki wallet, or both).
type Wallet struct {
	ID            string
	AccountNumber string
	YankiWalletID string
	Balance       decimal.Decimal
	Status        string
	Version       int64
	CreatedAt     time.Time
}

// Linked reports whether at least one fiat payment method is associated.
// An unlinked wallet cannot take part in purchases or exchanges.
func (w Wallet) Linked() bool {
	return w.AccountNumber != "" || w.YankiWalletID != ""
}
