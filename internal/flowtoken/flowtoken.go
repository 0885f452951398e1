// Package flowtoken issues and verifies the bearer tokens that bind a client
// to one wizard flow. The token's subject is the flow id; a client holding a
// token for flow A cannot read or mutate flow B.
package flowtoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid covers expired, malformed and wrongly-signed tokens.
var ErrInvalid = errors.New("invalid flow token")

// Manager signs and verifies flow tokens with a shared HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New builds a manager. ttl bounds the flow's lifetime and should match the
// handoff store's TTL.
func New(secret []byte, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{secret: secret, ttl: ttl, now: time.Now}
}

// Issue returns a signed token whose subject is flowID.
func (m *Manager) Issue(flowID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   flowID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign flow token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the flow id it was issued for.
func (m *Manager) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrInvalid
	}
	return claims.Subject, nil
}
