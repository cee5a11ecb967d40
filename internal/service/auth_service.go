package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"ideahub/internal/apperror"
	"ideahub/internal/auth"
	"ideahub/internal/metrics"
	"ideahub/internal/model"
	"ideahub/internal/repository"
	"ideahub/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type RegisterRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
	FullName   string `json:"fullName" binding:"required"`
	Department string `json:"department"`
}

type RegisterResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Message  string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Session   auth.Session `json:"user"`
}

var errInvalidCredentials = apperror.Unauthorized("Invalid email or password")

// AuthService registers principals and exchanges credentials for session tokens
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Authorize(ctx context.Context, email, password string) (auth.Session, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
}

type authService struct {
	store  repository.Store
	tokens *auth.TokenManager
	log    *zap.Logger
}

func NewAuthService(store repository.Store, tokens *auth.TokenManager, log *zap.Logger) AuthService {
	return &authService{store: store, tokens: tokens, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the credential record and its profile together
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	req.Email = normalizeEmail(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &model.User{Email: req.Email, PasswordHash: string(hashed)}
	profile := &model.Profile{
		Email:    &req.Email,
		FullName: req.FullName,
		Role:     model.RoleSubmitter,
	}
	if dept := strings.TrimSpace(req.Department); dept != "" {
		profile.Department = &dept
	}

	err = s.store.RunInTx(ctx, func(txCtx context.Context) error {
		var existing model.User
		err := s.store.FindOne(txCtx, repository.ModelUser, repository.Filter{"email": req.Email}, &existing)
		if err == nil {
			return errEmailTaken
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if err := s.store.Create(txCtx, repository.ModelUser, user); err != nil {
			return err
		}
		profile.ID = user.ID
		return s.store.Create(txCtx, repository.ModelProfile, profile)
	})
	switch {
	case err == nil:
	case errors.Is(err, errEmailTaken), errors.Is(err, repository.ErrDuplicate):
		return nil, apperror.Conflict("User with this email already exists")
	default:
		return nil, storageFault(s.log, "register", err, zap.String("email", req.Email))
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return &RegisterResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: profile.FullName,
		Role:     profile.Role,
		Message:  "Registration successful",
	}, nil
}

var errEmailTaken = errors.New("email taken")

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	return h
})

// Authorize checks credentials. Every failure, including storage faults, is
// reported as invalid credentials so the gate never fails open.
func (s *authService) Authorize(ctx context.Context, email, password string) (auth.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return auth.Session{}, errInvalidCredentials
	}

	var user model.User
	if err := s.store.FindOne(ctx, repository.ModelUser, repository.Filter{"email": email}, &user); err != nil {
		// Unknown emails cost one bcrypt comparison like known ones
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		s.logLookupFailure("user lookup failed", email, err)
		return auth.Session{}, errInvalidCredentials
	}
	var profile model.Profile
	if err := s.store.FindOne(ctx, repository.ModelProfile, repository.Filter{"id": user.ID}, &profile); err != nil {
		s.logLookupFailure("profile lookup failed", email, err)
		return auth.Session{}, errInvalidCredentials
	}
	if user.PasswordHash == "" {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return auth.Session{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return auth.Session{}, errInvalidCredentials
	}

	metrics.LoginAttempts.WithLabelValues("accepted").Inc()
	session := auth.Session{UserID: profile.ID, Role: profile.Role, FullName: profile.FullName}
	if profile.Department != nil {
		session.Department = *profile.Department
	}
	return session, nil
}

func (s *authService) logLookupFailure(msg, email string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		return
	}
	metrics.LoginAttempts.WithLabelValues("error").Inc()
	_ = storageFault(s.log, "authorize", err, zap.String("email", email), zap.String("step", msg))
}

// Login authorizes the credentials and mints a session token
func (s *authService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	session, err := s.Authorize(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	token, session, err := s.tokens.Issue(session)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &TokenResponse{Token: token, ExpiresAt: session.ExpiresAt, Session: session}, nil
}
