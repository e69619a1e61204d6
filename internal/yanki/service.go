package yanki

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrCardConflict indicates the Yanki wallet is already activated with a
// different debit card. First association wins.
var ErrCardConflict = errors.New("yanki wallet bound to a different debit card")

// Service exposes Yanki wallet operations.
type Service struct {
	repo Repository
}

// NewService builds a Yanki wallet service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create provisions a Yanki wallet awaiting debit card association.
func (s *Service) Create(ctx context.Context, phoneNumber string) (Wallet, error) {
	if phoneNumber == "" {
		return Wallet{}, fmt.Errorf("phone number is required")
	}
	w := Wallet{
		ID:          uuid.NewString(),
		PhoneNumber: phoneNumber,
		Status:      StatusPendingDebitCard,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Get retrieves a Yanki wallet by identifier.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// AssociateDebitCard activates a pending wallet with the given card.
// Re-delivering the same association is a no-op; a different card against an
// already-activated wallet returns ErrCardConflict.
func (s *Service) AssociateDebitCard(ctx context.Context, walletID, debitCardNumber string) error {
	w, err := s.repo.Get(ctx, walletID)
	if err != nil {
		return err
	}
	switch {
	case w.Status == StatusPendingDebitCard:
		w.DebitCardNumber = debitCardNumber
		w.Status = StatusActive
		return s.repo.Update(ctx, w)
	case w.DebitCardNumber == debitCardNumber:
		return nil
	default:
		return ErrCardConflict
	}
}
