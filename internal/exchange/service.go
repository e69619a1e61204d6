package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/config"
	"github.com/boot-pay/boot_pay/internal/events"
	"github.com/boot-pay/boot_pay/internal/payment"
	"github.com/boot-pay/boot_pay/internal/rate"
	"github.com/boot-pay/boot_pay/internal/transaction"
	"github.com/boot-pay/boot_pay/internal/wallet"
)

var (
	// ErrInvalidTransition indicates the requested operation is not legal in
	// the petition's current state.
	ErrInvalidTransition = errors.New("invalid petition transition")

	// ErrSelfTrade indicates buyer and seller are the same wallet.
	ErrSelfTrade = errors.New("buyer and seller wallets are the same")

	// ErrUnacceptableRate indicates the petition's implied rate is below the
	// effective sell rate; the match is refused.
	ErrUnacceptableRate = errors.New("petition rate below effective sell rate")

	// ErrSettlementInconsistent indicates a confirmed fiat leg could not be
	// compensated. The petition stays in SETTLING and an operator must
	// reconcile; this error is never swallowed.
	ErrSettlementInconsistent = errors.New("settlement inconsistent: compensation failed")
)

// conflictRetries bounds the claim loop when failing a contended petition.
const conflictRetries = 3

// Failure reasons persisted on FAILED petitions.
const (
	reasonCancelled     = "cancelled"
	reasonFiatDeclined  = "fiat_leg_declined"
	reasonFiatUnavail   = "fiat_leg_unavailable"
	reasonBootCoinLeg   = "bootcoin_leg_failed"
	reasonNoRate        = "no_rate_at_settlement"
	reasonRateMoved     = "rate_moved"
	reasonSettleTimeout = "settle_timeout"
)

// Service is the exchange saga coordinator. It owns every petition state
// transition; all saga state lives in the persisted petition record.
type Service struct {
	petitions  Repository
	wallets    *wallet.Service
	rates      *rate.Service
	dispatcher *payment.Dispatcher
	audit      transaction.Repository
	publisher  events.Publisher
	logger     *slog.Logger
	ratePolicy config.RateLockPolicy
}

// NewService constructs the exchange coordinator.
func NewService(petitions Repository, wallets *wallet.Service, rates *rate.Service, dispatcher *payment.Dispatcher,
	audit transaction.Repository, publisher events.Publisher, ratePolicy config.RateLockPolicy, logger *slog.Logger) *Service {
	return &Service{
		petitions:  petitions,
		wallets:    wallets,
		rates:      rates,
		dispatcher: dispatcher,
		audit:      audit,
		publisher:  publisher,
		ratePolicy: ratePolicy,
		logger:     logger,
	}
}

// SubmitInput captures a buyer's exchange intent.
type SubmitInput struct {
	BootCoinAmount       decimal.Decimal
	FiatAmount           decimal.Decimal
	BuyerWalletID        string
	BuyerPaymentType     payment.Type
	BuyerPaymentMethodID string
}

// Submit opens a petition. The buyer wallet must be active and linked.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (Petition, error) {
	if !input.BootCoinAmount.IsPositive() || !input.FiatAmount.IsPositive() {
		return Petition{}, fmt.Errorf("amounts must be positive")
	}

	buyer, err := s.wallets.Get(ctx, input.BuyerWalletID)
	if err != nil {
		return Petition{}, err
	}
	if buyer.Status != wallet.StatusActive {
		return Petition{}, wallet.ErrInactive
	}
	if !buyer.Linked() {
		return Petition{}, wallet.ErrNotLinked
	}

	now := time.Now().UTC()
	p := Petition{
		ID:                   uuid.NewString(),
		BootCoinAmount:       input.BootCoinAmount,
		FiatAmount:           input.FiatAmount,
		BuyerWalletID:        buyer.ID,
		BuyerPaymentType:     input.BuyerPaymentType,
		BuyerPaymentMethodID: input.BuyerPaymentMethodID,
		LockedSellRate:       decimal.Zero,
		Status:               StatusOpen,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.petitions.Create(ctx, p); err != nil {
		return Petition{}, err
	}
	return p, nil
}

// Get retrieves a petition.
func (s *Service) Get(ctx context.Context, id string) (Petition, error) {
	return s.petitions.Get(ctx, id)
}

// MatchInput identifies the selling counterparty.
type MatchInput struct {
	SellerWalletID        string
	SellerPaymentType     payment.Type
	SellerPaymentMethodID string
}

// Match binds a seller to an OPEN petition. The seller must hold enough
// BootCoin and the petition's implied rate must meet the effective sell rate,
// which is captured as the locked rate. Re-matching the same seller is a no-op.
func (s *Service) Match(ctx context.Context, petitionID string, input MatchInput) (Petition, error) {
	p, err := s.petitions.Get(ctx, petitionID)
	if err != nil {
		return Petition{}, err
	}
	if p.Status == StatusMatched && p.SellerWalletID == input.SellerWalletID {
		return p, nil
	}
	if p.Status != StatusOpen {
		return Petition{}, fmt.Errorf("match %s petition: %w", p.Status, ErrInvalidTransition)
	}
	if input.SellerWalletID == p.BuyerWalletID {
		return Petition{}, ErrSelfTrade
	}

	seller, err := s.wallets.Get(ctx, input.SellerWalletID)
	if err != nil {
		return Petition{}, err
	}
	if seller.Status != wallet.StatusActive {
		return Petition{}, wallet.ErrInactive
	}
	if !seller.Linked() {
		return Petition{}, wallet.ErrNotLinked
	}
	if seller.Balance.LessThan(p.BootCoinAmount) {
		return Petition{}, wallet.ErrInsufficientBootCoin
	}

	current, err := s.rates.Resolve(ctx, time.Now().UTC())
	if err != nil {
		return Petition{}, err
	}
	if impliedRate(p).LessThan(current.SellRate) {
		return Petition{}, ErrUnacceptableRate
	}

	p.SellerWalletID = seller.ID
	p.SellerPaymentType = input.SellerPaymentType
	p.SellerPaymentMethodID = input.SellerPaymentMethodID
	p.LockedSellRate = current.SellRate
	p.Status = StatusMatched
	return s.petitions.Update(ctx, p)
}

// Settle drives a MATCHED petition through both payment legs. The fiat leg
// settles first; the BootCoin leg is only released after the fiat leg is
// confirmed. Calling Settle on a SETTLING petition resumes from the persisted
// leg state; terminal petitions are returned unchanged.
func (s *Service) Settle(ctx context.Context, petitionID string) (Petition, error) {
	p, err := s.petitions.Get(ctx, petitionID)
	if err != nil {
		return Petition{}, err
	}
	if p.Terminal() {
		return p, nil
	}
	if p.Status == StatusOpen {
		return Petition{}, fmt.Errorf("settle OPEN petition: %w", ErrInvalidTransition)
	}

	if p.Status == StatusMatched {
		p.Status = StatusSettling
		if p, err = s.petitions.Update(ctx, p); err != nil {
			return Petition{}, err
		}
	}

	if s.ratePolicy == config.RateLockAtSettlement && !p.FiatConfirmed {
		current, err := s.rates.Resolve(ctx, time.Now().UTC())
		if err != nil {
			if errors.Is(err, rate.ErrNoRateAvailable) {
				failed, failErr := s.fail(ctx, p, reasonNoRate)
				if failErr != nil {
					return failed, failErr
				}
				return failed, err
			}
			return Petition{}, err
		}
		if impliedRate(p).LessThan(current.SellRate) {
			failed, failErr := s.fail(ctx, p, reasonRateMoved)
			if failErr != nil {
				return failed, failErr
			}
			return failed, ErrUnacceptableRate
		}
	}

	// Fiat leg: buyer pays seller. Keyed by petition ID so redelivery and
	// crash recovery never double-charge.
	if !p.FiatConfirmed {
		res := s.dispatcher.Transfer(ctx, p.BuyerMethod(), p.SellerMethod(), p.FiatAmount, fiatLegTxID(p))
		if res.Outcome != payment.Confirmed {
			reason := reasonFiatDeclined
			if res.Outcome == payment.Unavailable {
				reason = reasonFiatUnavail
			}
			failed, failErr := s.fail(ctx, p, reason)
			if failErr != nil {
				return failed, failErr
			}
			return failed, res.AsError()
		}
		p.FiatConfirmed = true
		updated, err := s.petitions.Update(ctx, p)
		if err != nil {
			if errors.Is(err, ErrVersionConflict) {
				// A failure path claimed the petition while the fiat leg
				// settled. The claimant read FiatConfirmed as false, so the
				// refund is ours to issue before standing down.
				if refund := s.dispatcher.Refund(ctx, p.BuyerMethod(), p.SellerMethod(), p.FiatAmount, fiatLegTxID(p)); refund.Outcome != payment.Confirmed {
					return s.escalate(ctx, p, refund.Err)
				}
				return s.superseded(ctx, p.ID)
			}
			return Petition{}, err
		}
		p = updated
	}

	// BootCoin leg: released only now that the fiat leg is confirmed. The move
	// is a single balanced transfer deduplicated by the coin-leg key, so
	// resuming after a crash replays it as a no-op instead of debiting the
	// seller a second time.
	if err := s.wallets.Transfer(ctx, p.SellerWalletID, p.BuyerWalletID, p.BootCoinAmount, coinLegTxID(p)); err != nil {
		failed, failErr := s.fail(ctx, p, reasonBootCoinLeg)
		if failErr != nil {
			return failed, failErr
		}
		return failed, fmt.Errorf("%w: %v", payment.ErrDeclined, err)
	}

	p.Status = StatusSettled
	settled, err := s.petitions.Update(ctx, p)
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			// A failure path claimed the petition after the coin move. The
			// claimant owns the fiat refund; the coin leg is ours to reverse.
			if revErr := s.wallets.Transfer(ctx, p.BuyerWalletID, p.SellerWalletID, p.BootCoinAmount, coinReversalTxID(p)); revErr != nil {
				return s.escalate(ctx, p, fmt.Errorf("reverse bootcoin leg: %v", revErr))
			}
			return s.superseded(ctx, p.ID)
		}
		return Petition{}, err
	}
	p = settled

	record := transaction.Transaction{
		ID:             uuid.NewString(),
		PetitionID:     p.ID,
		BuyerWalletID:  p.BuyerWalletID,
		SellerWalletID: p.SellerWalletID,
		FiatAmount:     p.FiatAmount,
		BootCoinAmount: p.BootCoinAmount,
		PaymentType:    string(p.BuyerPaymentType),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.audit.Append(ctx, record); err != nil {
		return p, err
	}

	s.publish(ctx, events.Event{
		Kind:    events.KindExchangeSettled,
		Subject: p.ID,
		Fields: map[string]string{
			"transaction_id":  record.ID,
			"buyer_wallet":    p.BuyerWalletID,
			"seller_wallet":   p.SellerWalletID,
			"bootcoin_amount": p.BootCoinAmount.String(),
			"fiat_amount":     p.FiatAmount.String(),
		},
	})
	return p, nil
}

// Cancel aborts a petition. OPEN and MATCHED petitions fail directly; a
// SETTLING petition runs the same compensation path as a settlement failure.
// Terminal petitions cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, petitionID string) (Petition, error) {
	p, err := s.petitions.Get(ctx, petitionID)
	if err != nil {
		return Petition{}, err
	}
	if p.Terminal() {
		return Petition{}, fmt.Errorf("cancel %s petition: %w", p.Status, ErrInvalidTransition)
	}
	return s.fail(ctx, p, reasonCancelled)
}

// fail drives a petition to FAILED. The record is claimed with a version bump
// before any money moves, so a settle racing this path loses its next write
// and reverses its own moves; only then is a confirmed fiat leg refunded.
// When compensation cannot complete the petition is left in SETTLING and
// ErrSettlementInconsistent surfaces for operator attention.
func (s *Service) fail(ctx context.Context, p Petition, reason string) (Petition, error) {
	claimed, err := s.claim(ctx, p, reason)
	if err != nil {
		return Petition{}, err
	}
	p = claimed

	if p.FiatConfirmed {
		res := s.dispatcher.Refund(ctx, p.BuyerMethod(), p.SellerMethod(), p.FiatAmount, fiatLegTxID(p))
		if res.Outcome != payment.Confirmed {
			return s.escalate(ctx, p, res.Err)
		}
		p.FiatConfirmed = false
	}

	p.Status = StatusFailed
	updated, err := s.petitions.Update(ctx, p)
	if err != nil {
		return Petition{}, err
	}

	s.publish(ctx, events.Event{
		Kind:    events.KindExchangeFailed,
		Subject: updated.ID,
		Fields:  map[string]string{"reason": reason},
	})
	return updated, nil
}

// claim bumps the petition's version with the failure reason recorded while
// the status is still non-terminal. Raced claims retry against a fresh read;
// a petition that went terminal meanwhile cannot be claimed.
func (s *Service) claim(ctx context.Context, p Petition, reason string) (Petition, error) {
	for attempt := 0; attempt < conflictRetries; attempt++ {
		p.FailureReason = reason
		claimed, err := s.petitions.Update(ctx, p)
		if err == nil {
			return claimed, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return Petition{}, err
		}
		current, getErr := s.petitions.Get(ctx, p.ID)
		if getErr != nil {
			return Petition{}, getErr
		}
		if current.Terminal() {
			return Petition{}, fmt.Errorf("fail %s petition: %w", current.Status, ErrInvalidTransition)
		}
		p = current
	}
	return Petition{}, fmt.Errorf("claim petition %s: %w", p.ID, ErrVersionConflict)
}

// superseded reports that a concurrent failure path won the petition's version
// race. The caller has already reversed its own moves.
func (s *Service) superseded(ctx context.Context, id string) (Petition, error) {
	current, err := s.petitions.Get(ctx, id)
	if err != nil {
		return Petition{}, err
	}
	return current, fmt.Errorf("settle %s petition: %w", current.Status, ErrInvalidTransition)
}

// escalate reports an unrecoverable compensation failure. The petition keeps
// its SETTLING status so the sweeper retries compensation on later passes.
func (s *Service) escalate(ctx context.Context, p Petition, cause error) (Petition, error) {
	s.logger.Error("settlement inconsistent, operator reconciliation required",
		"petition_id", p.ID, "error", cause)
	s.publish(ctx, events.Event{
		Kind:    events.KindSettlementEscalation,
		Subject: p.ID,
		Fields:  map[string]string{"error": fmt.Sprint(cause)},
	})
	return p, fmt.Errorf("petition %s: %w: %v", p.ID, ErrSettlementInconsistent, cause)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish outcome event", "kind", event.Kind, "error", err)
	}
}

func impliedRate(p Petition) decimal.Decimal {
	return p.FiatAmount.Div(p.BootCoinAmount)
}

func fiatLegTxID(p Petition) string {
	return p.ID + ":fiat"
}

func coinLegTxID(p Petition) string {
	return p.ID + ":coin"
}

func coinReversalTxID(p Petition) string {
	return p.ID + ":coin:reversal"
}
