// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            testSecret,
		AccessTokenExpire: 15 * time.Minute,
		Issuer:            "codeplay",
		Audience:          "codeplay-api",
	}
}

func newTestJWT(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testJWTConfig())
	require.NoError(t, err)
	return m
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Secret = ""

	_, err := NewJWTManager(cfg)
	assert.ErrorIs(t, err, ErrSigningKeyMissing)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestJWT(t)

	token, err := m.CreateAccessToken("user-1", "alice@example.com")
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestAccessToken_Expired(t *testing.T) {
	m := newTestJWT(t)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := m.CreateAccessToken("user-1", "alice@example.com")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(context.Background(), token)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
	assert.NotErrorIs(t, err, core.ErrTokenInvalid)
}

func TestAccessToken_Invalid(t *testing.T) {
	m := newTestJWT(t)

	token, err := m.CreateAccessToken("user-1", "alice@example.com")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := m.VerifyAccessToken(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})

	t.Run("tampered", func(t *testing.T) {
		_, err := m.VerifyAccessToken(context.Background(), token+"x")
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})

	t.Run("other secret", func(t *testing.T) {
		cfg := testJWTConfig()
		cfg.Secret = "ffffffffffffffffffffffffffffffff"
		other, err := NewJWTManager(cfg)
		require.NoError(t, err)

		_, err = other.VerifyAccessToken(context.Background(), token)
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})

	t.Run("other audience", func(t *testing.T) {
		cfg := testJWTConfig()
		cfg.Audience = "someone-else"
		other, err := NewJWTManager(cfg)
		require.NoError(t, err)

		_, err = other.VerifyAccessToken(context.Background(), token)
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})
}
