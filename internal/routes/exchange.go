package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boot-pay/boot_pay/internal/exchange"
)

// RegisterExchangeRoutes wires the exchange petition endpoints.
func RegisterExchangeRoutes(router fiber.Router, h *exchange.Handler) {
	group := router.Group("/bootcoin/petitions")
	group.Post("/", h.Submit)
	group.Get("/:petitionId", h.Get)
	group.Delete("/:petitionId", h.Cancel)
}
