package wallet

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/auth"
	"github.com/victornnamdii/wallet-service/internal/request"
	"github.com/victornnamdii/wallet-service/internal/response"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Mine returns the authenticated user's wallet.
func (h *Handler) Mine(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
	}
	w, err := h.service.GetByOwner(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Wallet retrieved successfully", fiber.Map{"wallet": w})
}

type openRequest struct {
	Currency string `json:"currency"`
}

// Open creates a wallet for the authenticated user.
func (h *Handler) Open(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
	}
	var req openRequest
	if err := request.DecodeJSON(c, &req); err != nil {
		return err
	}
	w, err := h.service.Open(c.UserContext(), principal.UserID, req.Currency)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated, "Wallet created successfully", fiber.Map{"wallet": w})
}

// Transactions lists the authenticated user's wallet history.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
	}
	w, err := h.service.GetByOwner(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	txs, err := h.service.History(c.UserContext(), w.ID, HistoryQuery{
		Limit:  c.QueryInt("limit", DefaultHistoryLimit),
		Offset: c.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Transactions retrieved successfully", fiber.Map{"transactions": txs})
}

// Reconcile checks the authenticated user's balance against their history.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
	}
	w, err := h.service.GetByOwner(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}
	st, err := h.service.Reconcile(c.UserContext(), w.ID)
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusOK, "Wallet reconciled", fiber.Map{"reconciliation": st})
}
