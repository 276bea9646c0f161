package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/dtcstudio/taskboard/internal/domain"
)

// RequireStaff ensures the caller is authenticated.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireManager ensures the caller holds the MANAGER role.
func RequireManager() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Staff == nil {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		if principal.Staff.Role != domain.StaffRoleManager {
			return fiber.NewError(http.StatusForbidden, "manager role required")
		}
		return c.Next()
	}
}
