package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boot-pay/boot_pay/internal/purchase"
)

// RegisterPurchaseRoutes wires the BootCoin purchase endpoint.
func RegisterPurchaseRoutes(router fiber.Router, h *purchase.Handler) {
	router.Post("/bootcoin/purchases", h.Buy)
}
