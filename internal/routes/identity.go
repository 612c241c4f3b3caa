package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/identity"
)

// RegisterIdentityRoutes wires the profile endpoint.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Get("/me", h.Me)
}
