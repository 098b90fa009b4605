// Package auth issues and validates the HS256 service tokens that guard the
// filter API and authenticate the query client against the remote engine.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "inspectview/internal/core/context"
)

// Scopes granted to service tokens.
const (
	ScopeFilters = "filters"
	ScopeQuery   = "query"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:   secret,
		Issuer:   "inspectview",
		TokenTTL: time.Hour,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scp,omitempty"`
}

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config}
}

// Enabled reports whether a signing secret is configured.
func (s *JWTService) Enabled() bool {
	return s != nil && s.config.Secret != ""
}

// GenerateToken issues a token for subject with the given scopes.
func (s *JWTService) GenerateToken(subject string, scopes ...string) (string, time.Time, error) {
	if !s.Enabled() {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}
	now := time.Now()
	expiresAt := now.Add(s.config.TokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scopes: scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a token and returns the caller it was issued to.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.Caller, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithIssuer(s.config.Issuer))

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &appctx.Caller{
		Subject: claims.Subject,
		Scopes:  claims.Scopes,
	}, nil
}

// TokenSource returns a bearer token, refreshing it shortly before expiry.
// It is not safe for concurrent use; callers wrap it as needed.
type TokenSource struct {
	service   *JWTService
	subject   string
	scopes    []string
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewTokenSource creates a token source issuing tokens for subject.
func NewTokenSource(service *JWTService, subject string, scopes ...string) *TokenSource {
	return &TokenSource{service: service, subject: subject, scopes: scopes, now: time.Now}
}

// Token returns a valid token.
func (ts *TokenSource) Token() (string, error) {
	if ts.token != "" && ts.now().Add(30*time.Second).Before(ts.expiresAt) {
		return ts.token, nil
	}
	token, exp, err := ts.service.GenerateToken(ts.subject, ts.scopes...)
	if err != nil {
		return "", err
	}
	ts.token, ts.expiresAt = token, exp
	return token, nil
}
