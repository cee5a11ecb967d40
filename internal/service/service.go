package service

import (
	"fmt"
	"time"

	"ideahub/internal/apperror"
	"ideahub/internal/auth"
	"ideahub/internal/observability"

	"go.uber.org/zap"
)

// Dashboard event names pushed to live clients
const (
	EventIdeaCreated       = "idea_created"
	EventIdeaStatusChanged = "idea_status_changed"
	EventEvaluationCreated = "evaluation_created"
)

// Notifier fans out dashboard events to connected clients
type Notifier interface {
	Publish(event string, data any)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, any) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// storageFault logs and reports err, returning the generic internal error
func storageFault(log *zap.Logger, op string, err error, fields ...zap.Field) error {
	log.Error("storage fault", append(fields, zap.String("op", op), zap.Error(err))...)
	observability.CaptureErr(fmt.Errorf("%s: %w", op, err))
	return apperror.Internal(err)
}

// requireRole gates an action on an authenticated session holding one of roles
func requireRole(s auth.Session, roles ...string) error {
	if s.UserID == "" {
		return apperror.Unauthorized("Authentication required")
	}
	if len(roles) > 0 && !s.HasRole(roles...) {
		return apperror.Forbidden("Access denied: insufficient permissions")
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }
