package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// RateLimitOptions tunes a limiter instance.
type RateLimitOptions struct {
	Max    int
	Window time.Duration
	// FailuresOnly counts only responses with status >= 400, so callers that
	// succeed are never locked out.
	FailuresOnly bool
}

// RateLimit limits requests per authenticated user, or per client IP for anonymous callers.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	return NewRateLimiter(identifier, RateLimitOptions{Max: max, Window: window})
}

// LoginRateLimit throttles repeated failed sign-in attempts from one client.
func LoginRateLimit(max int, window time.Duration) fiber.Handler {
	return NewRateLimiter("login", RateLimitOptions{Max: max, Window: window, FailuresOnly: true})
}

// NewRateLimiter builds a limiter keyed by identifier and caller.
func NewRateLimiter(identifier string, opts RateLimitOptions) fiber.Handler {
	if opts.Max <= 0 {
		opts.Max = 10
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	retryAfter := strconv.Itoa(int(opts.Window.Round(time.Second) / time.Second))

	return limiter.New(limiter.Config{
		Max:                    opts.Max,
		Expiration:             opts.Window,
		SkipSuccessfulRequests: opts.FailuresOnly,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := c.Locals("user_id").(uint); ok && userID != 0 {
				return fmt.Sprintf("%s:user-%d", identifier, userID)
			}
			return fmt.Sprintf("%s:ip-%s", identifier, c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderRetryAfter, retryAfter)
			return utils.Fail(c, fiber.StatusTooManyRequests, "too many requests, slow down", nil)
		},
	})
}
