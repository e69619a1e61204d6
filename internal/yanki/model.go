package yanki

import "time"

const (
	// StatusPendingDebitCard marks a freshly created Yanki wallet awaiting its
	// debit card association before it can settle fiat.
	StatusPendingDebitCard = "pending_debitcard_association"
	// StatusActive marks a Yanki wallet ready for fiat settlement.
	StatusActive = "active"
	// StatusInactive marks a deactivated Yanki wallet.
	StatusInactive = "inactive"
)

// Wallet is a Yanki mobile wallet, addressed by phone number on the fiat rail.
type Wallet struct {
	ID              string
	PhoneNumber     string
	DebitCardNumber string
	Status          string
	CreatedAt       time.Time
}
