package payments

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/auth"
	"github.com/victornnamdii/wallet-service/internal/ledger"
	"github.com/victornnamdii/wallet-service/internal/money"
	"github.com/victornnamdii/wallet-service/internal/request"
	"github.com/victornnamdii/wallet-service/internal/response"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	Amount    any    `json:"amount"`
	Narration string `json:"narration"`
}

type transferResponse struct {
	Wallet      ledger.Wallet      `json:"wallet"`
	Transaction ledger.Transaction `json:"transaction"`
}

// Transfer sends funds from the authenticated user's wallet to the wallet
// named in the path.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
	}
	var req transferRequest
	if err := request.DecodeJSON(c, &req); err != nil {
		return err
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return err
	}

	res, err := h.service.Transfer(c.UserContext(), ledger.TransferInput{
		SenderOwnerID:    principal.UserID,
		SenderWalletID:   principal.WalletID,
		ReceiverWalletID: c.Params("receivingWalletId"),
		Amount:           amount,
		Narration:        req.Narration,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated,
		fmt.Sprintf("%s successfully transferred to %s", amount, res.Credited.OwnerName),
		transferResponse{Wallet: res.Debited, Transaction: res.Debit})
}
