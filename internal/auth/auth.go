// Package auth inspects the bearer token handed out by the auth service.
// The client never mints tokens; it only reads expiry and, when the shared
// secret is configured, checks the signature.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrBadToken = errors.New("invalid token")
	ErrExpired  = errors.New("token expired")
)

// Claims carries the user's email in sub.
type Claims struct {
	jwt.RegisteredClaims
}

// ParseToken reads the claims of raw and validates expiry against now.
// With an empty secret the signature is not checked.
func ParseToken(raw, secret string, now time.Time) (*Claims, error) {
	if raw == "" {
		return nil, ErrBadToken
	}
	if secret == "" {
		return parseUnverified(raw, now)
	}

	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadToken
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpired
	}
	if err != nil {
		return nil, ErrBadToken
	}
	c, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrBadToken
	}
	return c, nil
}

func parseUnverified(raw string, now time.Time) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, c); err != nil {
		return nil, ErrBadToken
	}
	if c.ExpiresAt != nil && !now.Before(c.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	return c, nil
}
