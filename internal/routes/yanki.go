package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boot-pay/boot_pay/internal/yanki"
)

// RegisterYankiRoutes wires the Yanki wallet endpoints.
func RegisterYankiRoutes(router fiber.Router, h *yanki.Handler) {
	group := router.Group("/yanki/wallets")
	group.Post("/", h.Create)
	group.Get("/:walletId", h.Get)
}
