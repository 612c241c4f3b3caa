package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/funding"
)

// RegisterFundingRoutes wires self funding and withdrawal endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallet/fund", h.Fund)
	r.Post("/wallet/withdraw", h.Withdraw)
}
