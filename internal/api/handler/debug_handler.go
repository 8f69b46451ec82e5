package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/playeconomy/identity/internal/core/ports"
)

// DebugHandler exposes token and role introspection for operators.
type DebugHandler struct {
	service ports.UserService
}

func NewDebugHandler(service ports.UserService) *DebugHandler {
	return &DebugHandler{service: service}
}

// Claims handles GET /debug/claims and echoes the caller's token claims.
//
// @Summary      Show the caller's claims
// @Tags         debug
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  claimsResponse
// @Failure      401  {object}  errorResponse
// @Router       /debug/claims [get]
func (h *DebugHandler) Claims(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, claimsResponse{
		UserID: claims.UserID,
		Email:  claims.Email,
		Roles:  claims.Roles,
	})
}

// Roles handles GET /debug/roles?email= and lists the stored role
// memberships of a user.
//
// @Summary      List a user's roles
// @Tags         debug
// @Produce      json
// @Param        email  query     string  true  "User email"
// @Success      200    {object}  rolesResponse
// @Failure      400    {object}  errorResponse
// @Failure      404    {object}  errorResponse
// @Router       /debug/roles [get]
func (h *DebugHandler) Roles(c echo.Context) error {
	email := strings.TrimSpace(c.QueryParam("email"))
	if email == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "email is required"})
	}

	roles, err := h.service.RolesByEmail(c.Request().Context(), email)
	if err != nil {
		return writeDomainError(c, err)
	}
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(http.StatusOK, rolesResponse{Email: email, Roles: roles})
}
