package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// conflictRetries bounds optimistic-lock retry loops on a single wallet.
const conflictRetries = 5

var (
	// ErrAlreadyLinked indicates the wallet is linked to a different payment
	// method than the one in the association. First association wins.
	ErrAlreadyLinked = errors.New("wallet already linked")

	// ErrInsufficientBootCoin indicates the wallet balance cannot cover a debit.
	ErrInsufficientBootCoin = errors.New("insufficient bootcoin balance")

	// ErrInactive indicates the wallet has been deactivated.
	ErrInactive = errors.New("wallet inactive")

	// ErrNotLinked indicates the wallet has no fiat payment method yet and so
	// cannot take part in purchases or exchanges.
	ErrNotLinked = errors.New("wallet has no linked payment method")
)

// Service exposes BootCoin wallet operations.
type Service struct {
	repo Repository
}

// NewService builds a wallet service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create provisions an empty, unlinked wallet.
func (s *Service) Create(ctx context.Context) (Wallet, error) {
	w := Wallet{
		ID:        uuid.NewString(),
		Balance:   decimal.Zero,
		Status:    StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Get retrieves a wallet by identifier.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}

// LinkAccount associates a bank account number with the wallet. The first
// successful association wins: re-delivering the same association is a no-op,
// a different account number returns ErrAlreadyLinked.
func (s *Service) LinkAccount(ctx context.Context, walletID, accountNumber string) error {
	return s.withRetry(ctx, walletID, func(w *Wallet) error {
		switch w.AccountNumber {
		case "":
			w.AccountNumber = accountNumber
			return nil
		case accountNumber:
			return errNoChange
		default:
			return ErrAlreadyLinked
		}
	})
}

// LinkYankiWallet associates a Yanki wallet identifier, symmetric to LinkAccount.
func (s *Service) LinkYankiWallet(ctx context.Context, walletID, yankiWalletID string) error {
	return s.withRetry(ctx, walletID, func(w *Wallet) error {
		switch w.YankiWalletID {
		case "":
			w.YankiWalletID = yankiWalletID
			return nil
		case yankiWalletID:
			return errNoChange
		default:
			return ErrAlreadyLinked
		}
	})
}

// Credit adds BootCoin to the wallet balance.
func (s *Service) Credit(ctx context.Context, walletID string, amount decimal.Decimal) (Wallet, error) {
	err := s.withRetry(ctx, walletID, func(w *Wallet) error {
		if w.Status != StatusActive {
			return ErrInactive
		}
		w.Balance = w.Balance.Add(amount)
		return nil
	})
	if err != nil {
		return Wallet{}, err
	}
	return s.repo.Get(ctx, walletID)
}

// Debit removes BootCoin from the wallet balance, failing when it would go negative.
func (s *Service) Debit(ctx context.Context, walletID string, amount decimal.Decimal) (Wallet, error) {
	err := s.withRetry(ctx, walletID, func(w *Wallet) error {
		if w.Status != StatusActive {
			return ErrInactive
		}
		if w.Balance.LessThan(amount) {
			return ErrInsufficientBootCoin
		}
		w.Balance = w.Balance.Sub(amount)
		return nil
	})
	if err != nil {
		return Wallet{}, err
	}
	return s.repo.Get(ctx, walletID)
}

// Transfer moves BootCoin from one wallet to another as a single balanced,
// deduplicated operation: replaying a clientTxID that already applied is a
// no-op. Settlement legs run through here so crash recovery cannot move the
// same coins twice.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal, clientTxID string) error {
	if !amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive")
	}
	if clientTxID == "" {
		return fmt.Errorf("transfer requires a client transaction id")
	}
	return s.repo.Transfer(ctx, fromID, toID, amount, clientTxID)
}

// Deactivate marks the wallet inactive. Wallets are never deleted.
func (s *Service) Deactivate(ctx context.Context, walletID string) error {
	return s.withRetry(ctx, walletID, func(w *Wallet) error {
		if w.Status == StatusInactive {
			return errNoChange
		}
		w.Status = StatusInactive
		return nil
	})
}

// errNoChange signals the mutation is already applied; withRetry treats it as
// success without a write, which is what makes replayed associations idempotent.
var errNoChange = errors.New("no change")

func (s *Service) withRetry(ctx context.Context, walletID string, mutate func(*Wallet) error) error {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		w, err := s.repo.Get(ctx, walletID)
		if err != nil {
			return err
		}
		if err := mutate(&w); err != nil {
			if errors.Is(err, errNoChange) {
				return nil
			}
			return err
		}
		if _, err := s.repo.Update(ctx, w); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("wallet %s: %w after %d attempts", walletID, ErrVersionConflict, conflictRetries)
}
