package funding

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

// Handler exposes HTTP endpoints for funding and withdrawing a wallet.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Fund credits the authenticated user's wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	principal, amount, err := parseAmountRequest(c)
	if err != nil {
		return err
	}
	if principal.WalletID == "" {
		return ledger.ErrNotFound
	}

	result, err := h.service.Fund(c.UserContext(), FundInput{
		WalletID: principal.WalletID,
		Amount:   amount,
	})
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated,
		fmt.Sprintf("%s successfully added to your wallet", amount),
		FundingResponse{Wallet: result.Wallet, Transaction: result.Transaction})
}

// Withdraw debits the authenticated user's wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	principal, amount, err := parseAmountRequest(c)
	if err != nil {
		return err
	}

	result, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		OwnerID:  principal.UserID,
		WalletID: principal.WalletID,
		Amount:   amount,
	})
	if err != nil {
		return err
	}
	return response.Success(c, http.StatusCreated,
		fmt.Sprintf("%s successfully debited from your wallet", amount),
		FundingResponse{Wallet: result.Wallet, Transaction: result.Transaction})
}

func parseAmountRequest(c *fiber.Ctx) (auth.Principal, money.Cents, error) {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return auth.Principal{}, 0, fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
	}
	var req AmountRequest
	if err := request.DecodeJSON(c, &req); err != nil {
		return auth.Principal{}, 0, err
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return auth.Principal{}, 0, err
	}
	return principal, amount, nil
}
