// Package auth holds the request-scoped session and the tokens that carry it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated principal. It is read from the token on every
// request and never re-queried from storage.
type Session struct {
	UserID     string    `json:"id"`
	Role       string    `json:"role"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// HasRole reports whether the session role is in the allow-list
func (s Session) HasRole(allowed ...string) bool {
	for _, r := range allowed {
		if s.Role == r {
			return true
		}
	}
	return false
}

type sessionKey struct{}

// WithSession stores s in ctx
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Role       string `json:"role"`
	FullName   string `json:"full_name"`
	Department string `json:"department,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret []byte, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: secret, ttl: ttl, now: time.Now}
}

// TTL is the lifetime of issued tokens
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue mints a token for s. The returned session carries the expiry.
func (m *TokenManager) Issue(s Session) (string, Session, error) {
	now := m.now()
	s.ExpiresAt = now.Add(m.ttl).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:       s.Role,
		FullName:   s.FullName,
		Department: s.Department,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, s, nil
}

// Parse verifies tokenString and returns the session it carries
func (m *TokenManager) Parse(tokenString string) (Session, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" || c.Role == "" {
		return Session{}, fmt.Errorf("%w: missing subject or role", ErrInvalidToken)
	}
	s := Session{
		UserID:     c.Subject,
		Role:       c.Role,
		FullName:   c.FullName,
		Department: c.Department,
	}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}
