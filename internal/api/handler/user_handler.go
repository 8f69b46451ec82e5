package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/playeconomy/identity/internal/core/domain"
	"github.com/playeconomy/identity/internal/core/ports"
	"github.com/playeconomy/identity/internal/pkg/metrics"
)

// SyncWarning is sent on a committed mutation whose sync event could not be
// handed to the publisher.
const SyncWarning = `199 identity "user saved, synchronization degraded"`

// UserHandler handles the administrative user endpoints.
type UserHandler struct {
	service ports.UserService
	log     zerolog.Logger
}

func NewUserHandler(service ports.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With().Str("component", "user_handler").Logger(),
	}
}

// List handles GET /users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// Get handles GET /users/:id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Create handles POST /users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "New user"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	result, err := h.service.CreateUser(c.Request().Context(), toCreateInput(req))
	if err != nil {
		return writeDomainError(c, err)
	}
	h.markSync(c, "create", result)

	c.Response().Header().Set(echo.HeaderLocation, "/users/"+result.User.ID)
	return c.JSON(http.StatusCreated, toUserResponse(result.User))
}

// Update handles PUT /users/:id.
//
// @Summary      Update a user's email and balance
// @Tags         users
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string             true  "User id"
// @Param        body  body  updateUserRequest  true  "New values"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}

	result, err := h.service.UpdateUser(c.Request().Context(), c.Param("id"), toUpdateInput(req))
	if err != nil {
		return writeDomainError(c, err)
	}
	h.markSync(c, "update", result)

	return c.NoContent(http.StatusNoContent)
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "User id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	result, err := h.service.DeleteUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeDomainError(c, err)
	}
	h.markSync(c, "delete", result)

	return c.NoContent(http.StatusNoContent)
}

// markSync records the hand-off result of a committed mutation. The response
// status is never affected.
func (h *UserHandler) markSync(c echo.Context, op string, result *ports.MutationResult) {
	if !result.SyncDegraded {
		metrics.UserMutationsTotal.WithLabelValues(op, "queued").Inc()
		return
	}
	metrics.UserMutationsTotal.WithLabelValues(op, "degraded").Inc()
	c.Response().Header().Set("Warning", SyncWarning)
	h.log.Warn().
		Err(result.SyncErr).
		Str("op", op).
		Str("user_id", result.User.ID).
		Msg("responding with degraded synchronization")
}

// writeDomainError renders known domain errors; anything else goes to the
// central error handler.
func writeDomainError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	case errors.Is(err, domain.ErrUserExists):
		return c.JSON(http.StatusConflict, errorResponse{Error: "user already exists"})
	case errors.Is(err, domain.ErrInvalidBalance):
		return c.JSON(http.StatusUnprocessableEntity, errorResponse{Error: "balance must not be negative"})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, errorResponse{Error: "access forbidden"})
	}
	return err
}
