package rate

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Handler exposes exchange-rate HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a rate HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type appendRequest struct {
	EffectiveAt time.Time `json:"effective_at"`
	BuyRate     string    `json:"buy_rate"`
	SellRate    string    `json:"sell_rate"`
}

type rateResponse struct {
	ID          string    `json:"id"`
	EffectiveAt time.Time `json:"effective_at"`
	BuyRate     string    `json:"buy_rate"`
	SellRate    string    `json:"sell_rate"`
}

// Append records a new effective-dated rate.
func (h *Handler) Append(c *fiber.Ctx) error {
	var req appendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	buy, err := decimal.NewFromString(req.BuyRate)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid buy_rate")
	}
	sell, err := decimal.NewFromString(req.SellRate)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid sell_rate")
	}
	r, err := h.service.Append(c.UserContext(), req.EffectiveAt, buy, sell)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(rateResponse{
		ID:          r.ID,
		EffectiveAt: r.EffectiveAt,
		BuyRate:     r.BuyRate.String(),
		SellRate:    r.SellRate.String(),
	})
}

// Effective returns the rate in force at the requested time (default now).
func (h *Handler) Effective(c *fiber.Ctx) error {
	asOf := time.Now().UTC()
	if v := c.Query("at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid at timestamp")
		}
		asOf = parsed
	}
	r, err := h.service.Resolve(c.UserContext(), asOf)
	if err != nil {
		if errors.Is(err, ErrNoRateAvailable) {
			return fiber.NewError(http.StatusNotFound, "no exchange rate available")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(rateResponse{
		ID:          r.ID,
		EffectiveAt: r.EffectiveAt,
		BuyRate:     r.BuyRate.String(),
		SellRate:    r.SellRate.String(),
	})
}
