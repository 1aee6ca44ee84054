package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("test-secret-that-is-long-enough", 15*time.Minute, 7*24*time.Hour)
}

func TestJWTManager_AccessTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken("acc-1", "ann48123123123", "ann@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
	assert.Equal(t, "ann48123123123", claims.Username)
	assert.Equal(t, "ann@example.com", claims.Email)
	assert.Equal(t, "acc-1", claims.Subject)
}

func TestJWTManager_RefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateRefreshToken("acc-1")
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.AccountID)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager("a-completely-different-secret-key", 15*time.Minute, time.Hour)

	token, err := m.GenerateAccessToken("acc-1", "user", "")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret-that-is-long-enough", -time.Minute, -time.Minute)

	token, err := m.GenerateAccessToken("acc-1", "user", "")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsMalformedToken(t *testing.T) {
	m := newTestManager()

	_, err := m.ValidateAccessToken("not-a-jwt")
	assert.Error(t, err)

	_, err = m.ValidateRefreshToken("")
	assert.Error(t, err)
}
