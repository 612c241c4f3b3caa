package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/victornnamdii/wallet-service/internal/auth"
)

const defaultMutationsPerMinute = 30

// MutationRateLimit caps balance-changing requests per user per minute using
// a fixed Redis window. Reads pass through, and so does everything when no
// Redis client is configured.
func MutationRateLimit(cache *redis.Client, maxPerMin int) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = defaultMutationsPerMinute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil || isSafeMethod(c.Method()) {
			return c.Next()
		}
		subject := c.IP()
		if p, ok := auth.PrincipalFrom(c); ok {
			subject = p.UserID
		}
		key := "rl:mutations:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail open
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "Too many requests, try again later")
		}
		return c.Next()
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	}
	return false
}
