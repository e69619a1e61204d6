package association

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/boot-pay/boot_pay/internal/bus"
	"github.com/boot-pay/boot_pay/internal/wallet"
	"github.com/boot-pay/boot_pay/internal/yanki"
)

// Inbound envelope types consumed by the association handlers.
const (
	AccountEventType   = "AccountNumberAssociation"
	YankiEventType     = "YankiWalletAssociation"
	DebitCardEventType = "DebitCardAssociation"
)

// AccountNumberAssociation links a BootCoin wallet to a bank account.
type AccountNumberAssociation struct {
	WalletID      string `json:"walletId"`
	AccountNumber string `json:"accountNumber"`
}

// YankiWalletAssociation links a BootCoin wallet to a Yanki wallet, keyed by
// the Yanki phone number used on the mobile fiat rail.
type YankiWalletAssociation struct {
	WalletID         string `json:"walletId"`
	YankiPhoneNumber string `json:"yankiPhoneNumber"`
}

// DebitCardAssociation activates a Yanki wallet with its debit card.
type DebitCardAssociation struct {
	YankiWalletID   string `json:"yankiWalletId"`
	DebitCardNumber string `json:"debitCardNumber"`
}

// Handlers applies association messages to the owning wallet records. Every
// handler checks current linkage before writing, so redelivered messages are
// no-ops and conflicting associations are logged rather than applied: the
// first successful association wins.
type Handlers struct {
	wallets *wallet.Service
	yankis  *yanki.Service
	logger  *slog.Logger
}

// NewHandlers constructs the association handler set.
func NewHandlers(wallets *wallet.Service, yankis *yanki.Service, logger *slog.Logger) *Handlers {
	return &Handlers{wallets: wallets, yankis: yankis, logger: logger}
}

// Register wires the handlers onto the bus consumer.
func (h *Handlers) Register(consumer *bus.Consumer) {
	consumer.Handle(AccountEventType, h.HandleAccountNumber)
	consumer.Handle(YankiEventType, h.HandleYankiWallet)
	consumer.Handle(DebitCardEventType, h.HandleDebitCard)
}

// HandleAccountNumber applies a wallet-to-bank-account association.
func (h *Handlers) HandleAccountNumber(ctx context.Context, payload json.RawMessage) error {
	var msg AccountNumberAssociation
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode account association: %w", err)
	}
	err := h.wallets.LinkAccount(ctx, msg.WalletID, msg.AccountNumber)
	return h.resolve(err, "account association rejected", "wallet_id", msg.WalletID)
}

// HandleYankiWallet applies a wallet-to-Yanki-wallet association.
func (h *Handlers) HandleYankiWallet(ctx context.Context, payload json.RawMessage) error {
	var msg YankiWalletAssociation
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode yanki association: %w", err)
	}
	err := h.wallets.LinkYankiWallet(ctx, msg.WalletID, msg.YankiPhoneNumber)
	return h.resolve(err, "yanki association rejected", "wallet_id", msg.WalletID)
}

// HandleDebitCard activates a pending Yanki wallet with its debit card.
func (h *Handlers) HandleDebitCard(ctx context.Context, payload json.RawMessage) error {
	var msg DebitCardAssociation
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode debit card association: %w", err)
	}
	err := h.yankis.AssociateDebitCard(ctx, msg.YankiWalletID, msg.DebitCardNumber)
	return h.resolve(err, "debit card association rejected", "yanki_wallet_id", msg.YankiWalletID)
}

// resolve swallows linkage conflicts after logging them: the first association
// won and a competing message must not fail the stream. Other errors propagate.
func (h *Handlers) resolve(err error, msg string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case isConflict(err):
		h.logger.Warn(msg, append(args, "error", err)...)
		return nil
	default:
		return err
	}
}

func isConflict(err error) bool {
	return errors.Is(err, wallet.ErrAlreadyLinked) || errors.Is(err, yanki.ErrCardConflict)
}
