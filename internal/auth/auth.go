// Package auth mints and verifies the bearer tokens the API accepts.
// Tokens are HS256 JWTs carrying the user id in the sub claim; an
// audience claim is enforced only when one is configured.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNotConfigured = errors.New("auth secret not configured")

type Tokens struct {
	secret   string
	audience string
}

func New(secret, audience string) *Tokens {
	return &Tokens{
		secret:   strings.TrimSpace(secret),
		audience: strings.TrimSpace(audience),
	}
}

// Enabled reports whether signed tokens are configured. When false the
// API falls back to the X-User-Id development header.
func (t *Tokens) Enabled() bool { return t.secret != "" }

func (t *Tokens) Mint(userID string, ttl time.Duration) (string, error) {
	if !t.Enabled() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id required")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if t.audience != "" {
		claims.Audience = jwt.ClaimStrings{t.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(t.secret))
}

// Verify parses a signed token and returns its subject.
func (t *Tokens) Verify(tokenString string) (string, error) {
	if !t.Enabled() {
		return "", ErrNotConfigured
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if t.audience != "" {
		opts = append(opts, jwt.WithAudience(t.audience))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(t.secret), nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return "", errors.New("invalid or expired token")
	}
	if claims.Subject == "" {
		return "", errors.New("token missing sub claim")
	}
	return claims.Subject, nil
}

// ExtractBearer pulls the token out of an Authorization header value.
func ExtractBearer(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
