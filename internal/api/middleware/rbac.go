package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RBAC enforces role-based access control. The caller passes when any of its
// roles matches one of allowedRoles, compared case-insensitively.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToUpper(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, _ := c.Get("roles").([]string)
			for _, role := range roles {
				if _, ok := allowed[strings.ToUpper(role)]; ok {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}
