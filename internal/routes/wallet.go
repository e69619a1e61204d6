package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boot-pay/boot_pay/internal/wallet"
)

// RegisterWalletRoutes wires the BootCoin wallet endpoints.
func RegisterWalletRoutes(router fiber.Router, h *wallet.Handler) {
	group := router.Group("/bootcoin/wallets")
	group.Post("/", h.Create)
	group.Get("/:walletId", h.Get)
	group.Delete("/:walletId", h.Deactivate)
}
