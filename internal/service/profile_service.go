package service

import (
	"context"
	"errors"
	"strings"

	"ideahub/internal/apperror"
	"ideahub/internal/auth"
	"ideahub/internal/model"
	"ideahub/internal/normalize"
	"ideahub/internal/repository"
	"ideahub/internal/validation"

	"go.uber.org/zap"
)

type UpdateProfileRequest struct {
	FullName   string  `json:"full_name" binding:"required"`
	Department *string `json:"department"`
	Email      *string `json:"email" binding:"omitempty,email"`
}

// ProfileService reads and upserts the caller's own profile
type ProfileService interface {
	GetProfile(ctx context.Context, session auth.Session) (model.Record, error)
	UpdateProfile(ctx context.Context, session auth.Session, req UpdateProfileRequest) (model.Record, error)
}

type profileService struct {
	store repository.Store
	log   *zap.Logger
}

func NewProfileService(store repository.Store, log *zap.Logger) ProfileService {
	return &profileService{store: store, log: log}
}

func (s *profileService) GetProfile(ctx context.Context, session auth.Session) (model.Record, error) {
	if err := requireRole(session); err != nil {
		return nil, err
	}
	var profile model.Profile
	err := s.store.FindOne(ctx, repository.ModelProfile, repository.Filter{"id": session.UserID}, &profile)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Profile not found")
	}
	if err != nil {
		return nil, storageFault(s.log, "get profile", err, zap.String("user_id", session.UserID))
	}
	return normalize.Record(profile.Record()), nil
}

// UpdateProfile creates the profile on first setup or updates it afterwards.
// The existence check and the write run in one transaction.
func (s *profileService) UpdateProfile(ctx context.Context, session auth.Session, req UpdateProfileRequest) (model.Record, error) {
	if err := requireRole(session); err != nil {
		return nil, err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		req.Email = &email
	}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	var department *string
	if req.Department != nil {
		if dept := strings.TrimSpace(*req.Department); dept != "" {
			department = &dept
		}
	}

	var profile model.Profile
	err := s.store.RunInTx(ctx, func(txCtx context.Context) error {
		if req.Email != nil {
			var other model.Profile
			err := s.store.FindOne(txCtx, repository.ModelProfile, repository.Filter{"email": *req.Email}, &other)
			if err == nil && other.ID != session.UserID {
				return repository.ErrDuplicate
			}
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if err := s.syncLoginEmail(txCtx, session.UserID, *req.Email); err != nil {
				return err
			}
		}

		err := s.store.FindOne(txCtx, repository.ModelProfile, repository.Filter{"id": session.UserID}, &profile)
		if errors.Is(err, repository.ErrNotFound) {
			role := session.Role
			if !model.IsValidRole(role) {
				role = model.RoleSubmitter
			}
			profile = model.Profile{
				ID:         session.UserID,
				Email:      req.Email,
				FullName:   req.FullName,
				Department: department,
				Role:       role,
			}
			return s.store.Create(txCtx, repository.ModelProfile, &profile)
		}
		if err != nil {
			return err
		}

		changes := map[string]any{
			"full_name":  req.FullName,
			"department": department,
		}
		if req.Email != nil {
			changes["email"] = *req.Email
		}
		return s.store.Update(txCtx, repository.ModelProfile, repository.Filter{"id": session.UserID}, changes, &profile)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperror.Conflict("Profile with this email already exists")
	}
	if err != nil {
		return nil, storageFault(s.log, "update profile", err, zap.String("user_id", session.UserID))
	}
	return normalize.Record(profile.Record()), nil
}

// syncLoginEmail keeps the credential email in step with the profile email.
// Principals without credentials are left alone.
func (s *profileService) syncLoginEmail(ctx context.Context, userID, email string) error {
	var holder model.User
	err := s.store.FindOne(ctx, repository.ModelUser, repository.Filter{"email": email}, &holder)
	if err == nil && holder.ID != userID {
		return repository.ErrDuplicate
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	var user model.User
	err = s.store.Update(ctx, repository.ModelUser, repository.Filter{"id": userID}, map[string]any{"email": email}, &user)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}
