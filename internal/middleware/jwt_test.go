package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/middleware"
)

const testSecret = "access-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func baseClaims(tokenType string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "42",
		"role": "Teacher",
		"type": tokenType,
		"iss":  "seniku-api",
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
}

func protectedApp() *fiber.App {
	app := fiber.New()
	app.Use(middleware.JWTProtected(testSecret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Locals("user_id"), "role": c.Locals("user_role")})
	})
	return app
}

func callWithToken(t *testing.T, app *fiber.App, target, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestJWTProtectedAcceptsAccessToken(t *testing.T) {
	resp := callWithToken(t, protectedApp(), "/me", signToken(t, testSecret, baseClaims("access")))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestJWTProtectedRejectsRefreshToken(t *testing.T) {
	resp := callWithToken(t, protectedApp(), "/me", signToken(t, testSecret, baseClaims("refresh")))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRejectsWrongSecretAndExpiry(t *testing.T) {
	app := protectedApp()

	resp := callWithToken(t, app, "/me", signToken(t, "other-secret", baseClaims("access")))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	expired := baseClaims("access")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	resp = callWithToken(t, app, "/me", signToken(t, testSecret, expired))
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedRequiresHeader(t *testing.T) {
	resp := callWithToken(t, protectedApp(), "/me", "")
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestJWTProtectedAcceptsQueryTokenForStreams(t *testing.T) {
	token := signToken(t, testSecret, baseClaims("access"))
	resp := callWithToken(t, protectedApp(), "/me?access_token="+token, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
