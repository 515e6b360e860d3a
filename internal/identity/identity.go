// Package identity resolves connection credentials to user ids. The
// platform issues HS256 access tokens; this service only verifies
// them, it never mints any.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/KoushikPanda1729/lms-english/internal/domain"
)

var ErrUnauthorized = errors.New("unauthorized")

type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

// Resolve verifies a bearer token (with or without the "Bearer "
// prefix) and returns the subject user id.
func (r *Resolver) Resolve(credential string) (domain.UserID, error) {
	token := strings.TrimSpace(credential)
	if after, ok := cutPrefixFold(token, "bearer "); ok {
		token = strings.TrimSpace(after)
	}
	if token == "" {
		return "", ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return r.secret, nil
	})
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return domain.UserID(claims.Subject), nil
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
