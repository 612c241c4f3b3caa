package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/auth"
	"github.com/victornnamdii/wallet-service/internal/identity"
)

// JWTAuth validates bearer access tokens and attaches the caller's principal.
// A missing or malformed header is a 401; a token that fails verification or
// names an unknown user is a 403. A failed user lookup is passed on as a 500.
func JWTAuth(verifier *auth.Verifier, users identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		if tokenStr == "" {
			return fiber.NewError(http.StatusUnauthorized, "Invalid Authorization")
		}

		claims, err := verifier.Verify(tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusForbidden, "Forbidden")
		}
		user, err := users.FindByID(c.UserContext(), claims.UserID)
		if errors.Is(err, identity.ErrUserNotFound) {
			return fiber.NewError(http.StatusForbidden, "Forbidden")
		}
		if err != nil {
			return fmt.Errorf("load principal: %w", err)
		}

		auth.SetPrincipal(c, auth.Principal{UserID: user.ID, WalletID: user.WalletID})
		return c.Next()
	}
}
