package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/wallet"
)

// RegisterWalletRoutes wires wallet read endpoints and wallet creation.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Mine)
	r.Post("/wallet", h.Open)
	r.Get("/wallet/transactions", h.Transactions)
	r.Get("/wallet/reconcile", h.Reconcile)
}
