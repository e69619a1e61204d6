package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/events"
	"github.com/boot-pay/boot_pay/internal/payment"
	"github.com/boot-pay/boot_pay/internal/rate"
	"github.com/boot-pay/boot_pay/internal/transaction"
	"github.com/boot-pay/boot_pay/internal/wallet"
)

// bootCoinPlaces is the wallet's minimum unit: hundredths of a BootCoin.
const bootCoinPlaces = 2

// ErrAlreadyProcessed indicates the client transaction was collected by an
// earlier delivery. The wallet is already credited; nothing more to do.
var ErrAlreadyProcessed = errors.New("purchase already processed")

// Service coordinates one-sided fiat-to-BootCoin purchases: no counterparty,
// fiat is collected into the treasury and the wallet credited.
type Service struct {
	wallets    *wallet.Service
	rates      *rate.Service
	dispatcher *payment.Dispatcher
	audit      transaction.Repository
	publisher  events.Publisher
	logger     *slog.Logger
}

// NewService constructs a purchase coordinator.
func NewService(wallets *wallet.Service, rates *rate.Service, dispatcher *payment.Dispatcher, audit transaction.Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{wallets: wallets, rates: rates, dispatcher: dispatcher, audit: audit, publisher: publisher, logger: logger}
}

// Input captures a purchase request.
type Input struct {
	WalletID        string
	PaymentType     payment.Type
	PaymentMethodID string
	FiatAmount      decimal.Decimal
	ClientTxID      string
}

// Purchase debits the fiat leg and credits the wallet with BootCoin at the
// current buy rate. The BootCoin amount rounds down to the minimum unit so the
// platform never over-credits. A declined fiat leg leaves the wallet untouched
// and is not retried here: purchases are user-initiated, the caller decides.
func (s *Service) Purchase(ctx context.Context, input Input) (transaction.Transaction, error) {
	if !input.FiatAmount.IsPositive() {
		return transaction.Transaction{}, fmt.Errorf("fiat amount must be positive")
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	w, err := s.wallets.Get(ctx, input.WalletID)
	if err != nil {
		return transaction.Transaction{}, err
	}
	if w.Status != wallet.StatusActive {
		return transaction.Transaction{}, wallet.ErrInactive
	}
	if !w.Linked() {
		return transaction.Transaction{}, wallet.ErrNotLinked
	}

	current, err := s.rates.Resolve(ctx, time.Now().UTC())
	if err != nil {
		return transaction.Transaction{}, err
	}

	coinAmount := input.FiatAmount.Div(current.BuyRate).Truncate(bootCoinPlaces)
	if !coinAmount.IsPositive() {
		return transaction.Transaction{}, fmt.Errorf("fiat amount %s buys less than the minimum BootCoin unit", input.FiatAmount)
	}

	method := payment.Method{Type: input.PaymentType, ID: input.PaymentMethodID}
	res := s.dispatcher.Collect(ctx, method, input.FiatAmount, input.ClientTxID)
	if res.Outcome != payment.Confirmed {
		return transaction.Transaction{}, res.AsError()
	}
	if res.Duplicate {
		// The first delivery already credited the wallet.
		return transaction.Transaction{}, ErrAlreadyProcessed
	}

	if _, err := s.wallets.Credit(ctx, w.ID, coinAmount); err != nil {
		// Fiat is collected but the wallet credit failed; this should not
		// happen outside of store outages and must be reconciled.
		s.logger.Error("purchase credit failed after fiat collection",
			"wallet_id", w.ID, "client_tx_id", input.ClientTxID, "error", err)
		return transaction.Transaction{}, err
	}

	record := transaction.Transaction{
		ID:             uuid.NewString(),
		BuyerWalletID:  w.ID,
		FiatAmount:     input.FiatAmount,
		BootCoinAmount: coinAmount,
		PaymentType:    string(input.PaymentType),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.audit.Append(ctx, record); err != nil {
		return transaction.Transaction{}, err
	}

	if s.publisher != nil {
		_ = s.publisher.Publish(ctx, events.Event{
			Kind:    events.KindPurchaseCompleted,
			Subject: w.ID,
			Fields: map[string]string{
				"transaction_id":  record.ID,
				"fiat_amount":     record.FiatAmount.String(),
				"bootcoin_amount": record.BootCoinAmount.String(),
			},
		})
	}

	return record, nil
}
