package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/purchase"
)

// RegisterPurchaseRoutes wires purchase-recording endpoints.
func RegisterPurchaseRoutes(r fiber.Router, h *purchase.Handler) {
	r.Post("/purchases", h.Record)
	r.Get("/wallets/:walletId/purchases", h.ListByWallet)
}
