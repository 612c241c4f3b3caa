package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/victornnamdii/wallet-service/internal/metrics"
	"github.com/victornnamdii/wallet-service/internal/response"
)

// Metrics records request counts and latency labelled by route template, so
// wallet ids in paths do not explode label cardinality.
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		path := "unmatched"
		if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
			path = r.Path
		}
		metrics.RecordHTTPRequest(c.Method(), path, status, time.Since(start))
		return err
	}
}

// statusOf predicts the status the error handler will render for err.
func statusOf(err error) int {
	return response.FromError(err).Status
}
