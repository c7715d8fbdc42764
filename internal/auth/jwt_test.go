package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/plantshop-checkout/internal/session"
)

const testSecret = "test-secret-key-at-least-32-chars-long"

func testUser() session.Context {
	return session.Context{UserID: "user-123", Email: "user@example.com"}
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	token, expiresAt, err := svc.GenerateSessionToken(testUser())

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	user, err := svc.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", user.UserID)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestJWTService_WrongSecret(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	other := NewJWTService("another-secret-key-also-32-chars-xx", time.Hour)

	token, _, err := svc.GenerateSessionToken(testUser())
	require.NoError(t, err)

	_, err = other.ValidateSessionToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	svc := NewJWTService(testSecret, -time.Minute)

	token, _, err := svc.GenerateSessionToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateSessionToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_GarbageToken(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	_, err := svc.ValidateSessionToken("not.a.token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_SessionExpiry(t *testing.T) {
	svc := NewJWTService(testSecret, 24*time.Hour)

	assert.Equal(t, 24*time.Hour, svc.SessionExpiry())
}
