package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tripeco/identity-service/internal/api/metrics"
	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domain.NewInvalidRequest("invalid payload")
	}
	return c.Validate(req)
}

// Register creates a user with a generated password that is mailed to them.
//
// @Summary      Register a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerUserRequest  true  "User profile"
// @Success      201   {object}  UserResponse
// @Failure      422   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /users [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.Register(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}

	metrics.UsersRegisteredTotal.WithLabelValues(user.Role.String()).Inc()
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// List returns every user, or only those holding the given role.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Param        role  query     string  false  "Filter by role"  Enums(ADMIN, USER)
// @Success      200   {array}   UserResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		users []*domain.User
		err   error
	)
	if raw := c.QueryParam("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			return domain.NewInvalidRequest("role must be one of: ADMIN, USER")
		}
		users, err = h.users.FindByRole(ctx, role)
	} else {
		users, err = h.users.FindAll(ctx)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// Get returns one user by id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  UserResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.users.FindByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Current returns the reduced view of the calling user.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Param        X-User-Id  header    string  false  "Caller id set by the gateway"
// @Success      200        {object}  UserCurrent
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /users/current [get]
func (h *UserHandler) Current(c echo.Context) error {
	user, err := h.users.Current(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserCurrent(user))
}

// Me returns the full profile of the calling user.
//
// @Summary      My profile
// @Tags         users
// @Produce      json
// @Param        X-User-Id  header    string  false  "Caller id set by the gateway"
// @Success      200        {object}  UserResponse
// @Failure      400        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.users.Current(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Update applies a partial profile update.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  UserResponse
// @Failure      404   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Router       /users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.users.Update(c.Request().Context(), c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete removes a user.
//
// @Summary      Delete a user
// @Tags         users
// @Param        id   path  string  true  "User id"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.users.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ChangePassword replaces the calling user's password.
//
// @Summary      Change my password
// @Tags         users
// @Accept       json
// @Param        body  body  changePasswordRequest  true  "Old and new password"
// @Success      204
// @Failure      400   {object}  ErrorResponse
// @Failure      422   {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /users/password [patch]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.users.ChangePassword(c.Request().Context(), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ResendPassword generates a new password for a user and mails it.
//
// @Summary      Resend password
// @Tags         users
// @Param        id   path  string  true  "User id"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /users/{id}/password [patch]
func (h *UserHandler) ResendPassword(c echo.Context) error {
	if err := h.users.ResendPassword(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
