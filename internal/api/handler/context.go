package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// authClaims is what the Auth middleware leaves in the echo context.
type authClaims struct {
	UserID string
	Email  string
	Roles  []string
}

// ctxClaims extracts the auth claims injected by the Auth middleware. A
// missing subject means the middleware did not run.
func ctxClaims(c echo.Context) (authClaims, error) {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return authClaims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	email, _ := c.Get("email").(string)
	roles, _ := c.Get("roles").([]string)
	if roles == nil {
		roles = []string{}
	}

	return authClaims{UserID: userID, Email: email, Roles: roles}, nil
}
