package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vaultpay/vaultpay/internal/client"
)

// RegisterClientRoutes wires client registration endpoints.
func RegisterClientRoutes(r fiber.Router, h *client.Handler) {
	r.Post("/clients", h.Register)
}
