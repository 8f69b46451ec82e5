package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Auth validates the JWT and injects claims into context: user_id (sub),
// email and roles. The role claim may be a single string or an array.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims.GetSubject()
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token missing subject")
			}
			email, _ := claims["email"].(string)

			c.Set("user_id", sub)
			c.Set("email", email)
			c.Set("roles", roleClaims(claims))

			return next(c)
		}
	}
}

// roleClaims collects "role" and "roles" into a flat list.
func roleClaims(claims jwt.MapClaims) []string {
	roles := []string{}
	for _, key := range []string{"role", "roles"} {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				roles = append(roles, v)
			}
		case []interface{}:
			for _, r := range v {
				if s, ok := r.(string); ok && s != "" {
					roles = append(roles, s)
				}
			}
		}
	}
	return roles
}
