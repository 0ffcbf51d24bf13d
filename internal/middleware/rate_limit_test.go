package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/middleware"
)

func postStatus(t *testing.T, app *fiber.App, path string) *http.Response {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, path, nil), -1)
	require.NoError(t, err)
	return resp
}

func TestRateLimitRejectsBurst(t *testing.T) {
	app := fiber.New()
	app.Post("/uploads", middleware.RateLimit("uploads", 2, time.Minute), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	for i := 0; i < 2; i++ {
		require.Equal(t, fiber.StatusNoContent, postStatus(t, app, "/uploads").StatusCode)
	}

	resp := postStatus(t, app, "/uploads")
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestLoginRateLimitCountsOnlyFailures(t *testing.T) {
	app := fiber.New()
	app.Post("/login", middleware.LoginRateLimit(2, time.Minute), func(c *fiber.Ctx) error {
		if c.Query("ok") == "1" {
			return c.SendStatus(fiber.StatusOK)
		}
		return c.SendStatus(fiber.StatusUnauthorized)
	})

	for i := 0; i < 5; i++ {
		require.Equal(t, fiber.StatusOK, postStatus(t, app, "/login?ok=1").StatusCode)
	}
	require.Equal(t, fiber.StatusUnauthorized, postStatus(t, app, "/login").StatusCode)
	require.Equal(t, fiber.StatusUnauthorized, postStatus(t, app, "/login").StatusCode)
	require.Equal(t, fiber.StatusTooManyRequests, postStatus(t, app, "/login").StatusCode)
}
