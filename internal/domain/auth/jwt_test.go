package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	token, exp, err := svc.GenerateToken("grid-ui", ScopeFilters, ScopeQuery)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	caller, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "grid-ui", caller.Subject)
	assert.True(t, caller.HasScope(ScopeQuery))
	assert.False(t, caller.HasScope("admin"))
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(DefaultJWTConfig("other"))
		token, _, err := other.GenerateToken("x")
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.TokenTTL = -time.Minute
		token, _, err := NewJWTService(cfg).GenerateToken("x")
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		cfg := DefaultJWTConfig("secret")
		cfg.Issuer = "someone-else"
		token, _, err := NewJWTService(cfg).GenerateToken("x")
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "inspectview", Subject: "x"},
		})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(s)
		require.Error(t, err)
	})
}

func TestJWTService_Disabled(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig(""))
	assert.False(t, svc.Enabled())
	_, _, err := svc.GenerateToken("x")
	require.Error(t, err)
}

func TestTokenSource_Reuses(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret"))
	ts := NewTokenSource(svc, "client", ScopeQuery)

	first, err := ts.Token()
	require.NoError(t, err)
	second, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	ts.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = ts.Token()
	require.NoError(t, err)
	assert.True(t, ts.expiresAt.After(time.Now().Add(30*time.Minute)))
}
