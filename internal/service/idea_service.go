package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"ideahub/internal/apperror"
	"ideahub/internal/auth"
	"ideahub/internal/model"
	"ideahub/internal/normalize"
	"ideahub/internal/repository"
	"ideahub/internal/validation"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateIdeaRequest struct {
	Title              string              `json:"title" binding:"required,max=255"`
	Description        string              `json:"description" binding:"required"`
	Category           string              `json:"category" binding:"required,idea_category"`
	ImplementationCost decimal.NullDecimal `json:"implementation_cost"`
	ExpectedROI        decimal.NullDecimal `json:"expected_roi"`
	Draft              bool                `json:"draft"`
}

type UpdateIdeaStatusRequest struct {
	Status                  string              `json:"status" binding:"required,review_status"`
	StrategicAlignmentScore decimal.NullDecimal `json:"strategic_alignment_score"`
	PriorityScore           decimal.NullDecimal `json:"priority_score"`
}

// IdeaService owns the idea lifecycle: creation, submission and status moves
type IdeaService interface {
	CreateIdea(ctx context.Context, session auth.Session, req CreateIdeaRequest) (model.Record, error)
	SubmitIdea(ctx context.Context, session auth.Session, id string) (model.Record, error)
	UpdateStatus(ctx context.Context, session auth.Session, id string, req UpdateIdeaStatusRequest) (model.Record, error)
}

type ideaService struct {
	store    repository.Store
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewIdeaService(store repository.Store, notifier Notifier, log *zap.Logger) IdeaService {
	return &ideaService{store: store, notifier: notifierOrNoop(notifier), log: log, now: nowUTC}
}

func (s *ideaService) CreateIdea(ctx context.Context, session auth.Session, req CreateIdeaRequest) (model.Record, error) {
	if err := requireRole(session, model.RoleSubmitter); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	idea := &model.Idea{
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Status:             model.StatusDraft,
		SubmitterID:        session.UserID,
		ImplementationCost: req.ImplementationCost,
		ExpectedROI:        req.ExpectedROI,
	}
	if !req.Draft {
		now := s.now()
		idea.Status = model.StatusSubmitted
		idea.SubmittedAt = &now
	}

	if err := s.store.Create(ctx, repository.ModelIdea, idea); err != nil {
		return nil, storageFault(s.log, "create idea", err, zap.String("user_id", session.UserID))
	}

	record := normalize.Record(idea.Record())
	if idea.Status == model.StatusSubmitted {
		s.notifier.Publish(EventIdeaCreated, record)
	}
	return record, nil
}

// SubmitIdea moves the caller's own draft into the review queue
func (s *ideaService) SubmitIdea(ctx context.Context, session auth.Session, id string) (model.Record, error) {
	if err := requireRole(session, model.RoleSubmitter); err != nil {
		return nil, err
	}
	idea, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if idea.SubmitterID != session.UserID {
		return nil, apperror.Forbidden("Only the submitter can submit this idea")
	}
	if idea.Status != model.StatusDraft {
		return nil, apperror.Conflict("Idea has already been submitted")
	}

	changes := map[string]any{
		"status":       model.StatusSubmitted,
		"submitted_at": s.now(),
	}
	var updated model.Idea
	err = s.store.Update(ctx, repository.ModelIdea, repository.Filter{"id": id, "status": model.StatusDraft}, changes, &updated)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Conflict("Idea has already been submitted")
	}
	if err != nil {
		return nil, storageFault(s.log, "submit idea", err, zap.String("idea_id", id))
	}

	record := normalize.Record(updated.Record())
	s.notifier.Publish(EventIdeaCreated, record)
	return record, nil
}

// UpdateStatus advances an idea along the review lifecycle
func (s *ideaService) UpdateStatus(ctx context.Context, session auth.Session, id string, req UpdateIdeaStatusRequest) (model.Record, error) {
	if err := requireRole(session, model.RoleEvaluator, model.RoleManagement); err != nil {
		return nil, err
	}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	if req.Status == model.StatusImplemented && session.Role != model.RoleManagement {
		return nil, apperror.Forbidden("Only management can mark ideas as implemented")
	}

	idea, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if idea.Status == model.StatusDraft {
		return nil, apperror.Conflict("Idea has not been submitted yet")
	}
	if !model.CanTransition(idea.Status, req.Status) {
		return nil, apperror.Validation("Invalid status transition", map[string]string{
			"status": "cannot move from " + idea.Status + " to " + req.Status,
		})
	}

	now := s.now()
	changes := map[string]any{"status": req.Status}
	switch req.Status {
	case model.StatusUnderReview:
		if session.Role == model.RoleEvaluator && idea.AssignedEvaluatorID == nil {
			changes["assigned_evaluator_id"] = session.UserID
		}
	case model.StatusApproved, model.StatusRejected:
		changes["evaluated_at"] = now
	case model.StatusImplemented:
		changes["implemented_at"] = now
	}
	if req.StrategicAlignmentScore.Valid {
		changes["strategic_alignment_score"] = req.StrategicAlignmentScore
	}
	if req.PriorityScore.Valid {
		changes["priority_score"] = req.PriorityScore
	}

	// Guarded on the status that was checked so concurrent reviews cannot both land
	var updated model.Idea
	err = s.store.Update(ctx, repository.ModelIdea, repository.Filter{"id": id, "status": idea.Status}, changes, &updated)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.Conflict("Idea status changed, reload and try again")
	}
	if err != nil {
		return nil, storageFault(s.log, "update idea status", err, zap.String("idea_id", id))
	}

	record := normalize.Record(updated.Record())
	s.notifier.Publish(EventIdeaStatusChanged, record)
	return record, nil
}

func (s *ideaService) load(ctx context.Context, id string) (*model.Idea, error) {
	var idea model.Idea
	err := s.store.FindOne(ctx, repository.ModelIdea, repository.Filter{"id": id}, &idea)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Idea not found")
	}
	if err != nil {
		return nil, storageFault(s.log, "load idea", err, zap.String("idea_id", id))
	}
	return &idea, nil
}
