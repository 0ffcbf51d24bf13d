package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestCorrelationIDPropagation(t *testing.T) {
	app := fiber.New()
	app.Use(CorrelationID(zerolog.Nop()))
	app.Get("/", func(c *fiber.Ctx) error {
		require.Equal(t, GetCorrelationID(c), CorrelationIDFromContext(c.UserContext()))
		require.NotNil(t, zerolog.Ctx(c.UserContext()))
		return c.SendString(GetCorrelationID(c))
	})

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"correlation header", map[string]string{CorrelationHeader: "abc-123"}, "abc-123"},
		{"request id fallback", map[string]string{RequestIDHeader: "req_9"}, "req_9"},
		{"unsafe header replaced", map[string]string{CorrelationHeader: "bad id\r\n"}, ""},
		{"oversized header replaced", map[string]string{CorrelationHeader: strings.Repeat("a", 65)}, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for key, value := range tc.headers {
				req.Header.Set(key, value)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)

			got := resp.Header.Get(CorrelationHeader)
			require.NotEmpty(t, got)
			if tc.want != "" {
				require.Equal(t, tc.want, got)
			} else {
				require.Len(t, got, 36)
			}
		})
	}
}
