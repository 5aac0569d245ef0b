package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-video/sentra/internal/config"
	"github.com/sentra-video/sentra/models"
)

func testService(expiration time.Duration) *JWTService {
	cfg := &config.Config{}
	cfg.Security.JWTSecret = "test-secret-for-signing-tokens"
	cfg.Security.JWTExpiration = expiration
	return NewJWTService(cfg)
}

func testUser() *models.User {
	return &models.User{
		ID:       "user:1",
		Email:    "admin@example.com",
		Username: "admin",
		Roles:    []string{models.RoleAdmin},
		Enabled:  true,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService(time.Hour)

	token, err := svc.GenerateToken(testUser())
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.NotEmpty(t, token.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user:1", claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, []string{models.RoleAdmin}, claims.Roles)
	assert.Equal(t, "sentra", claims.Issuer)
}

func TestGenerateTokenRefusesDisabledUser(t *testing.T) {
	svc := testService(time.Hour)

	user := testUser()
	user.Enabled = false

	_, err := svc.GenerateToken(user)
	assert.ErrorIs(t, err, ErrUserDisabled)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := testService(-time.Minute)

	token, err := svc.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := testService(time.Hour).GenerateToken(testUser())
	require.NoError(t, err)

	other := &config.Config{}
	other.Security.JWTSecret = "a-completely-different-secret"
	other.Security.JWTExpiration = time.Hour

	_, err = NewJWTService(other).ValidateToken(token.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := testService(time.Hour)

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, ComparePassword("correct horse battery staple", hash))
	assert.ErrorIs(t, ComparePassword("wrong password", hash), ErrInvalidCredentials)
}
