package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes BootCoin wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	ID            string `json:"id"`
	AccountNumber string `json:"account_number,omitempty"`
	YankiWalletID string `json:"yanki_wallet_id,omitempty"`
	Balance       string `json:"balance"`
	Status        string `json:"status"`
	Linked        bool   `json:"linked"`
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{
		ID:            w.ID,
		AccountNumber: w.AccountNumber,
		YankiWalletID: w.YankiWalletID,
		Balance:       w.Balance.String(),
		Status:        w.Status,
		Linked:        w.Linked(),
	}
}

// Create provisions a new BootCoin wallet.
func (h *Handler) Create(c *fiber.Ctx) error {
	w, err := h.service.Create(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// Get returns wallet state including linkage and balance.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}

// Deactivate marks a wallet inactive.
func (h *Handler) Deactivate(c *fiber.Ctx) error {
	if err := h.service.Deactivate(c.UserContext(), c.Params("walletId")); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.SendStatus(http.StatusNoContent)
}
