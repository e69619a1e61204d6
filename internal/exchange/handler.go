package exchange

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/payment"
	"github.com/boot-pay/boot_pay/internal/rate"
	"github.com/boot-pay/boot_pay/internal/wallet"
)

// Handler exposes exchange petition HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an exchange HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type submitRequest struct {
	BootCoinAmount       string `json:"bootcoin_amount"`
	FiatAmount           string `json:"fiat_amount"`
	BuyerWalletID        string `json:"buyer_wallet_id"`
	BuyerPaymentType     string `json:"buyer_payment_type"`
	BuyerPaymentMethodID string `json:"buyer_payment_method_id"`
}

type petitionResponse struct {
	ID             string    `json:"id"`
	BootCoinAmount string    `json:"bootcoin_amount"`
	FiatAmount     string    `json:"fiat_amount"`
	BuyerWalletID  string    `json:"buyer_wallet_id"`
	SellerWalletID string    `json:"seller_wallet_id,omitempty"`
	Status         string    `json:"status"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func toResponse(p Petition) petitionResponse {
	return petitionResponse{
		ID:             p.ID,
		BootCoinAmount: p.BootCoinAmount.String(),
		FiatAmount:     p.FiatAmount.String(),
		BuyerWalletID:  p.BuyerWalletID,
		SellerWalletID: p.SellerWalletID,
		Status:         string(p.Status),
		FailureReason:  p.FailureReason,
		CreatedAt:      p.CreatedAt,
	}
}

// Submit opens an exchange petition.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	paymentType, err := payment.ParseType(req.BuyerPaymentType)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	coin, err := decimal.NewFromString(req.BootCoinAmount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid bootcoin_amount")
	}
	fiat, err := decimal.NewFromString(req.FiatAmount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid fiat_amount")
	}

	p, err := h.service.Submit(c.UserContext(), SubmitInput{
		BootCoinAmount:       coin,
		FiatAmount:           fiat,
		BuyerWalletID:        req.BuyerWalletID,
		BuyerPaymentType:     paymentType,
		BuyerPaymentMethodID: req.BuyerPaymentMethodID,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(p))
}

// Get returns the persisted petition state.
func (h *Handler) Get(c *fiber.Ctx) error {
	p, err := h.service.Get(c.UserContext(), c.Params("petitionId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(p))
}

// Cancel aborts a non-terminal petition.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	p, err := h.service.Cancel(c.UserContext(), c.Params("petitionId"))
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(p))
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, wallet.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrSelfTrade), errors.Is(err, ErrUnacceptableRate),
		errors.Is(err, wallet.ErrNotLinked), errors.Is(err, wallet.ErrInactive),
		errors.Is(err, wallet.ErrInsufficientBootCoin):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, rate.ErrNoRateAvailable):
		return fiber.NewError(http.StatusUnprocessableEntity, "no exchange rate available")
	case errors.Is(err, ErrSettlementInconsistent):
		return fiber.NewError(http.StatusInternalServerError, "settlement requires manual reconciliation")
	default:
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
}
