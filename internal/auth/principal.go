package auth

import "github.com/gofiber/fiber/v2"

const principalKey = "auth.principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   string
	WalletID string
}

// SetPrincipal attaches p to the request.
func SetPrincipal(c *fiber.Ctx, p Principal) {
	c.Locals(principalKey, p)
}

// PrincipalFrom returns the principal attached by the auth middleware.
func PrincipalFrom(c *fiber.Ctx) (Principal, bool) {
	p, ok := c.Locals(principalKey).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}
