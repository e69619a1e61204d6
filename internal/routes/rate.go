package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boot-pay/boot_pay/internal/rate"
)

// RegisterRateRoutes wires the exchange rate endpoints.
func RegisterRateRoutes(router fiber.Router, h *rate.Handler) {
	group := router.Group("/bootcoin/rates")
	group.Post("/", h.Append)
	group.Get("/effective", h.Effective)
}
