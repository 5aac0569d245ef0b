package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sentra-video/sentra/internal/auth"
	"github.com/sentra-video/sentra/internal/storage"
	"github.com/sentra-video/sentra/models"
)

// createUser handles POST /api/v1/users
func (s *Server) createUser(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	user := &models.User{
		ID:       models.GenerateID("user"),
		Email:    req.Email,
		Username: req.Username,
		Roles:    req.Roles,
		Enabled:  true,
		Created:  time.Now(),
	}
	if len(user.Roles) == 0 {
		user.Roles = []string{models.RoleViewer}
	}

	if verrs := s.validator.ValidateUserFields(user); len(verrs) > 0 {
		return ValidationFailedError("User validation failed", fieldErrorMap(verrs))
	}
	if verrs := s.validator.ValidatePassword(req.Password); len(verrs) > 0 {
		return ValidationFailedError("User validation failed", fieldErrorMap(verrs))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return InternalError("Failed to hash password", err.Error())
	}
	user.PasswordHash = hash

	if err := s.storage.SaveUser(user); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return ConflictError("Email already registered", req.Email)
		}
		return InternalError("Failed to save user", err.Error())
	}

	return c.JSON(http.StatusCreated, user.Response())
}

// listUsers handles GET /api/v1/users
func (s *Server) listUsers(c echo.Context) error {
	users, err := s.storage.ListUsers()
	if err != nil {
		return InternalError("Failed to list users", err.Error())
	}

	out := make([]*models.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, u.Response())
	}
	return c.JSON(http.StatusOK, out)
}

// getUser handles GET /api/v1/users/:id
func (s *Server) getUser(c echo.Context) error {
	user, err := s.storage.GetUser(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("User", c.Param("id"))
		}
		return InternalError("Failed to get user", err.Error())
	}
	return c.JSON(http.StatusOK, user.Response())
}

// updateUser handles PUT /api/v1/users/:id
func (s *Server) updateUser(c echo.Context) error {
	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	user, err := s.storage.GetUser(c.Param("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("User", c.Param("id"))
		}
		return InternalError("Failed to get user", err.Error())
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Roles != nil {
		user.Roles = *req.Roles
	}
	if req.Enabled != nil {
		user.Enabled = *req.Enabled
	}

	if verrs := s.validator.ValidateUserFields(user); len(verrs) > 0 {
		return ValidationFailedError("User validation failed", fieldErrorMap(verrs))
	}

	if err := s.storage.SaveUser(user); err != nil {
		return InternalError("Failed to save user", err.Error())
	}

	return c.JSON(http.StatusOK, user.Response())
}

// deleteUser handles DELETE /api/v1/users/:id. The last enabled admin
// cannot be deleted.
func (s *Server) deleteUser(c echo.Context) error {
	id := c.Param("id")

	user, err := s.storage.GetUser(id)
	if err != nil {
		if storage.IsNotFound(err) {
			return NotFoundError("User", id)
		}
		return InternalError("Failed to get user", err.Error())
	}

	if hasRole(user, models.RoleAdmin) {
		admins, err := s.countEnabledAdmins()
		if err != nil {
			return InternalError("Failed to count admins", err.Error())
		}
		if admins <= 1 {
			return ConflictError("Cannot delete the last admin", id)
		}
	}

	if err := s.storage.DeleteUser(id); err != nil {
		return InternalError("Failed to delete user", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// changePassword handles POST /api/v1/users/password for the
// authenticated user.
func (s *Server) changePassword(c echo.Context) error {
	claims, ok := auth.GetClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	user, err := s.storage.GetUser(claims.UserID)
	if err != nil {
		return NotFoundError("User", claims.UserID)
	}

	if err := auth.ComparePassword(req.CurrentPassword, user.PasswordHash); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
	}

	if verrs := s.validator.ValidatePassword(req.NewPassword); len(verrs) > 0 {
		return ValidationFailedError("Password validation failed", fieldErrorMap(verrs))
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return InternalError("Failed to hash password", err.Error())
	}
	user.PasswordHash = hash

	if err := s.storage.SaveUser(user); err != nil {
		return InternalError("Failed to save user", err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) countEnabledAdmins() (int, error) {
	users, err := s.storage.ListUsers()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, u := range users {
		if u.Enabled && hasRole(u, models.RoleAdmin) {
			count++
		}
	}
	return count, nil
}

func hasRole(user *models.User, role string) bool {
	for _, r := range user.Roles {
		if r == role {
			return true
		}
	}
	return false
}
