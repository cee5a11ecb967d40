package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	m := NewTokenManager([]byte("test-secret"), time.Hour)
	in := Session{UserID: "u1", Role: "evaluator", FullName: "Eva Luator", Department: "R&D"}

	token, issued, err := m.Issue(in)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.False(t, issued.ExpiresAt.IsZero())

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "evaluator", got.Role)
	assert.Equal(t, "Eva Luator", got.FullName)
	assert.Equal(t, "R&D", got.Department)
	assert.True(t, issued.ExpiresAt.Equal(got.ExpiresAt))
}

func TestParseRejectsExpired(t *testing.T) {
	m := NewTokenManager([]byte("test-secret"), time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := m.Issue(Session{UserID: "u1", Role: "submitter"})
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager([]byte("a"), time.Hour).Issue(Session{UserID: "u1", Role: "submitter"})
	require.NoError(t, err)

	_, err = NewTokenManager([]byte("b"), time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "role": "management", "exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager([]byte("secret"), time.Hour).Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSessionContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), Session{UserID: "u1", Role: "management"})
	s, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, s.HasRole("evaluator", "management"))
	assert.False(t, s.HasRole("submitter"))
}
