package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/payments"
)

// RegisterPaymentRoutes wires payment endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/wallet/transfer/:receivingWalletId", h.Transfer)
}
