package service

import (
	"context"
	"testing"
	"time"

	"ideahub/internal/apperror"
	"ideahub/internal/auth"
	"ideahub/internal/model"
	"ideahub/internal/repository"
	"ideahub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (AuthService, repository.Store, *auth.TokenManager) {
	store := testutil.NewStore(t)
	tokens := auth.NewTokenManager([]byte("test-secret"), time.Hour)
	return NewAuthService(store, tokens, zap.NewNop()), store, tokens
}

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Email:      "Ada@Example.com ",
		Password:   "correct-horse",
		FullName:   "Ada Lovelace",
		Department: "R&D",
	}
}

func TestRegisterCreatesUserAndProfile(t *testing.T) {
	svc, store, _ := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.Equal(t, model.RoleSubmitter, resp.Role)

	var profile model.Profile
	require.NoError(t, store.FindOne(ctx, repository.ModelProfile, repository.Filter{"id": resp.ID}, &profile))
	assert.Equal(t, "Ada Lovelace", profile.FullName)
	require.NotNil(t, profile.Department)
	assert.Equal(t, "R&D", *profile.Department)
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	svc, _, _ := newAuthService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "not-an-email"})
	require.Error(t, err)
	appErr := apperror.From(err)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Details, "email")
	assert.Contains(t, appErr.Details, "password")
	assert.Contains(t, appErr.Details, "fullName")
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, store, _ := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	again := validRegistration()
	again.Email = "ada@example.com"
	_, err = svc.Register(ctx, again)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	assert.Equal(t, "User with this email already exists", apperror.From(err).Message)

	profiles, err := store.Count(ctx, repository.ModelProfile, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profiles)
	users, err := store.Count(ctx, repository.ModelUser, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), users)
}

func TestAuthorize(t *testing.T) {
	svc, _, _ := newAuthService(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := svc.Authorize(ctx, "ada@example.com", "wrong-password")
		require.Error(t, err)
		assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))
	})

	t.Run("unknown email is rejected", func(t *testing.T) {
		_, err := svc.Authorize(ctx, "nobody@example.com", "correct-horse")
		assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))
	})

	t.Run("empty credentials are rejected", func(t *testing.T) {
		_, err := svc.Authorize(ctx, "", "")
		assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))
	})

	t.Run("correct credentials return the profile", func(t *testing.T) {
		session, err := svc.Authorize(ctx, "ADA@example.com", "correct-horse")
		require.NoError(t, err)
		assert.Equal(t, reg.ID, session.UserID)
		assert.Equal(t, model.RoleSubmitter, session.Role)
		assert.Equal(t, "Ada Lovelace", session.FullName)
		assert.Equal(t, "R&D", session.Department)
	})
}

func TestAuthorizeFailsClosedOnStorageFault(t *testing.T) {
	svc, store, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	require.NoError(t, store.Close(ctx))

	_, err = svc.Authorize(ctx, "ada@example.com", "correct-horse")
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc, _, tokens := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	session, err := tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Session.UserID, session.UserID)
	assert.Equal(t, model.RoleSubmitter, session.Role)
	assert.Equal(t, "R&D", session.Department)
}

func TestDummyHashMatchesRealCost(t *testing.T) {
	cost, err := bcrypt.Cost(dummyHash())
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
