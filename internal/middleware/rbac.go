package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// roleGroups expands the symbolic names accepted by RequireRole and WithAuth.
var roleGroups = map[string][]string{
	AuthRoleStaff: {models.RoleTeacher, models.RoleAdmin},
	AuthRoleAny:   {models.RoleStudent, models.RoleTeacher, models.RoleAdmin},
}

// rolePolicy is the resolved set of roles a route admits.
type rolePolicy map[string]struct{}

func newRolePolicy(roles ...string) rolePolicy {
	policy := rolePolicy{}
	for _, role := range roles {
		normalized := normalizeRoleValue(role)
		if normalized == "" {
			continue
		}
		if members, ok := roleGroups[normalized]; ok {
			for _, member := range members {
				policy[member] = struct{}{}
			}
			continue
		}
		policy[normalized] = struct{}{}
	}
	return policy
}

func (p rolePolicy) admits(role string) bool {
	_, ok := p[role]
	return ok
}

// authorize reports the status a request must be rejected with, or zero when it may continue.
func (p rolePolicy) authorize(c *fiber.Ctx) int {
	if c.Locals("user_id") == nil {
		return fiber.StatusUnauthorized
	}
	if !p.admits(normalizeRoleValue(c.Locals("user_role"))) {
		return fiber.StatusForbidden
	}
	return 0
}

// RequireRole rejects requests whose authenticated role is outside roles.
// "staff" stands for teachers and admins.
func RequireRole(roles ...string) fiber.Handler {
	policy := newRolePolicy(roles...)

	return func(c *fiber.Ctx) error {
		switch policy.authorize(c) {
		case fiber.StatusUnauthorized:
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		case fiber.StatusForbidden:
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
}
