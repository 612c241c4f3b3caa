package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/auth"
	"github.com/victornnamdii/wallet-service/internal/response"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type profileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	WalletID  string `json:"walletId,omitempty"`
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFrom(c)
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
	}
	user, err := h.service.FindByID(c.UserContext(), principal.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, "User not found")
		}
		return err
	}
	return response.Success(c, http.StatusOK, "User retrieved successfully", fiber.Map{
		"user": profileResponse{
			ID:        user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			WalletID:  user.WalletID,
		},
	})
}
