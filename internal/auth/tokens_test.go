package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tuttiservices/wholesale-backend/internal/users"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour, "test")
	token, err := tm.Generate(42, users.RoleAdmin)
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	require.Equal(t, int64(42), claims.UserID)
	require.Equal(t, users.RoleAdmin, claims.Role)
	require.Equal(t, "test", claims.Issuer)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute, "test")
	token, err := tm.Generate(1, users.RoleBuyer)
	require.NoError(t, err)

	_, err = tm.Validate(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := NewTokenManager("secret-a", time.Hour, "test").Generate(1, users.RoleBuyer)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour, "test").Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour, "test")
	_, err := tm.Validate("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
}
