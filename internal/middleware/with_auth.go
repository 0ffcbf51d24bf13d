package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// Role names understood by WithAuth in addition to the concrete user roles.
const (
	AuthRoleAny     = "any"
	AuthRoleStaff   = "staff"
	AuthRoleAdmin   = "admin"
	AuthRoleStudent = "student"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role string
	// Roles admits any of several roles; it is merged with Role.
	Roles []string
	// RequireUser forces authentication for AuthRoleAny routes.
	RequireUser bool
}

// WithAuth guards a single handler. AuthRoleAny without RequireUser lets anonymous callers through.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	roles := append([]string{opts.Role}, opts.Roles...)
	policy := newRolePolicy(roles...)
	anonymous := len(policy) == 0 || (normalizeRoleValue(opts.Role) == AuthRoleAny && len(opts.Roles) == 0)
	if anonymous && !opts.RequireUser {
		return handler
	}
	if anonymous {
		policy = newRolePolicy(AuthRoleAny)
	}

	return func(c *fiber.Ctx) error {
		switch policy.authorize(c) {
		case fiber.StatusUnauthorized:
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		case fiber.StatusForbidden:
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}
