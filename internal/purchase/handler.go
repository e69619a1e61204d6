package purchase

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/boot-pay/boot_pay/internal/payment"
	"github.com/boot-pay/boot_pay/internal/rate"
	"github.com/boot-pay/boot_pay/internal/wallet"
)

// Handler exposes the purchase HTTP endpoint.
type Handler struct {
	service *Service
}

// NewHandler builds a purchase HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type purchaseRequest struct {
	WalletID        string `json:"wallet_id"`
	PaymentType     string `json:"payment_type"`
	PaymentMethodID string `json:"payment_method_id"`
	FiatAmount      string `json:"fiat_amount"`
	ClientTxID      string `json:"client_tx_id"`
}

type purchaseResponse struct {
	TransactionID  string `json:"transaction_id"`
	WalletID       string `json:"wallet_id"`
	FiatAmount     string `json:"fiat_amount"`
	BootCoinAmount string `json:"bootcoin_amount"`
}

// Buy processes a fiat-to-BootCoin purchase.
func (h *Handler) Buy(c *fiber.Ctx) error {
	var req purchaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	paymentType, err := payment.ParseType(req.PaymentType)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := decimal.NewFromString(req.FiatAmount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid fiat_amount")
	}

	record, err := h.service.Purchase(c.UserContext(), Input{
		WalletID:        req.WalletID,
		PaymentType:     paymentType,
		PaymentMethodID: req.PaymentMethodID,
		FiatAmount:      amount,
		ClientTxID:      req.ClientTxID,
	})
	if err != nil {
		switch {
		case errors.Is(err, wallet.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, wallet.ErrNotLinked), errors.Is(err, wallet.ErrInactive):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrAlreadyProcessed):
			return fiber.NewError(http.StatusConflict, "client transaction already processed")
		case errors.Is(err, rate.ErrNoRateAvailable):
			return fiber.NewError(http.StatusUnprocessableEntity, "no exchange rate available")
		case errors.Is(err, payment.ErrDeclined):
			return fiber.NewError(http.StatusPaymentRequired, "payment declined")
		case errors.Is(err, payment.ErrUnavailable):
			return fiber.NewError(http.StatusServiceUnavailable, "payment backend unavailable")
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(purchaseResponse{
		TransactionID:  record.ID,
		WalletID:       record.BuyerWalletID,
		FiatAmount:     record.FiatAmount.String(),
		BootCoinAmount: record.BootCoinAmount.String(),
	})
}
