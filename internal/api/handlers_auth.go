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

// login handles POST /api/v1/auth/login
func (s *Server) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	if req.Email == "" || req.Password == "" {
		return BadRequestError("Invalid request body", "email and password are required")
	}

	user, err := s.storage.GetUserByEmail(req.Email)
	if err != nil {
		return InternalError("Failed to look up user", err.Error())
	}
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	if !user.Enabled {
		return echo.NewHTTPError(http.StatusUnauthorized, "user account is disabled")
	}

	if err := auth.ComparePassword(req.Password, user.PasswordHash); err != nil {
		s.debugLog("login failed for %s: %v", user.Email, err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return InternalError("Failed to generate token", err.Error())
	}

	return c.JSON(http.StatusOK, LoginResponse{
		User:        user.Response(),
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
	})
}

// register handles POST /api/v1/auth/register. Self-registered accounts
// always start as viewers; role grants go through the user admin endpoints.
func (s *Server) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return BadRequestError("Invalid request body", err.Error())
	}

	user := &models.User{
		ID:       models.GenerateID("user"),
		Email:    req.Email,
		Username: req.Username,
		Roles:    []string{models.RoleViewer},
		Enabled:  true,
		Created:  time.Now(),
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

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return InternalError("Failed to generate token", err.Error())
	}

	return c.JSON(http.StatusCreated, LoginResponse{
		User:        user.Response(),
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
	})
}

// me handles GET /api/v1/auth/me
func (s *Server) me(c echo.Context) error {
	claims, ok := auth.GetClaims(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	user, err := s.storage.GetUser(claims.UserID)
	if err != nil {
		return NotFoundError("User", claims.UserID)
	}

	return c.JSON(http.StatusOK, user.Response())
}
