package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", 15*time.Minute, 720*time.Hour)

	token, err := m.GenerateAccessToken("u1", "ada@example.com")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "u1", claims.Subject)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", 15*time.Minute, 720*time.Hour)

	token, err := m.GenerateRefreshToken("u1")
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
}

func TestValidate_WrongSecret(t *testing.T) {
	m := NewTokenManager("test-secret", 15*time.Minute, 720*time.Hour)
	other := NewTokenManager("other-secret", 15*time.Minute, 720*time.Hour)

	token, err := m.GenerateAccessToken("u1", "ada@example.com")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidate_Expired(t *testing.T) {
	m := NewTokenManager("test-secret", -time.Minute, 720*time.Hour)

	token, err := m.GenerateAccessToken("u1", "ada@example.com")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}
