package yanki

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes Yanki wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a Yanki wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type walletResponse struct {
	ID              string `json:"id"`
	PhoneNumber     string `json:"phone_number"`
	DebitCardNumber string `json:"debit_card_number,omitempty"`
	Status          string `json:"status"`
}

// Create provisions a Yanki wallet for the given phone number.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	w, err := h.service.Create(c.UserContext(), req.PhoneNumber)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(walletResponse{
		ID:          w.ID,
		PhoneNumber: w.PhoneNumber,
		Status:      w.Status,
	})
}

// Get returns Yanki wallet state.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "yanki wallet not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(walletResponse{
		ID:              w.ID,
		PhoneNumber:     w.PhoneNumber,
		DebitCardNumber: w.DebitCardNumber,
		Status:          w.Status,
	})
}
