package middleware

import (
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornnamdii/wallet-service/internal/auth"
)

func TestMutationRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		auth.SetPrincipal(c, auth.Principal{UserID: c.Get("X-Test-User")})
		return c.Next()
	})
	app.Use(MutationRateLimit(cache, 2))
	app.All("/op", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	do := func(method, user string) int {
		req := httptest.NewRequest(method, "/op", nil)
		req.Header.Set("X-Test-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, do(fiber.MethodPost, "a"))
	assert.Equal(t, fiber.StatusOK, do(fiber.MethodPost, "a"))
	assert.Equal(t, fiber.StatusTooManyRequests, do(fiber.MethodPost, "a"))
	assert.Equal(t, fiber.StatusOK, do(fiber.MethodPost, "b"))
	assert.Equal(t, fiber.StatusOK, do(fiber.MethodGet, "a"))

	ttl := mr.TTL("rl:mutations:a")
	assert.Positive(t, ttl)
}

func TestMutationRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Use(MutationRateLimit(nil, 1))
	app.Post("/op", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/op", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}
}
