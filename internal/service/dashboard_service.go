package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"ideahub/internal/apperror"
	"ideahub/internal/auth"
	"ideahub/internal/config"
	"ideahub/internal/export"
	"ideahub/internal/metrics"
	"ideahub/internal/model"
	"ideahub/internal/normalize"
	"ideahub/internal/repository"
	"ideahub/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SubmitterStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

type SubmitterDashboard struct {
	Ideas []model.Record `json:"ideas"`
	Stats SubmitterStats `json:"stats"`
}

// EvaluatorDashboard keeps the queue and the evaluator's history apart; the
// caller joins them on idea_id.
type EvaluatorDashboard struct {
	PendingIdeas  []model.Record `json:"pending_ideas"`
	MyEvaluations []model.Record `json:"my_evaluations"`
}

type ManagementStats struct {
	Total       int   `json:"total"`
	Active      int   `json:"active"`
	Implemented int   `json:"implemented"`
	SuccessRate int   `json:"success_rate"`
	TotalUsers  int64 `json:"total_users"`
}

// ChartPoint is one name/value pair of a dashboard chart
type ChartPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type ManagementDashboard struct {
	Ideas      []model.Record  `json:"ideas"`
	Stats      ManagementStats `json:"stats"`
	ByCategory []ChartPoint    `json:"by_category"`
	ByStatus   []ChartPoint    `json:"by_status"`
}

type CreateEvaluationRequest struct {
	IdeaID           string `json:"idea_id" binding:"required"`
	FeasibilityScore int    `json:"feasibility_score" binding:"required,min=1,max=10"`
	ImpactScore      int    `json:"impact_score" binding:"required,min=1,max=10"`
	InnovationScore  int    `json:"innovation_score" binding:"required,min=1,max=10"`
	OverallScore     int    `json:"overall_score" binding:"required,min=1,max=10"`
	Feedback         string `json:"feedback"`
	Recommendation   string `json:"recommendation" binding:"required,max=50"`
}

// ExportFile is a rendered attachment
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardService assembles the role specific dashboards and records evaluations
type DashboardService interface {
	GetSubmitterDashboard(ctx context.Context, session auth.Session) (*SubmitterDashboard, error)
	GetEvaluatorDashboard(ctx context.Context, session auth.Session) (*EvaluatorDashboard, error)
	GetManagementDashboard(ctx context.Context, session auth.Session) (*ManagementDashboard, error)
	CreateEvaluation(ctx context.Context, session auth.Session, req CreateEvaluationRequest) (model.Record, error)
	ExportManagement(ctx context.Context, session auth.Session) (*ExportFile, error)
}

type dashboardService struct {
	store      repository.Store
	notifier   Notifier
	log        *zap.Logger
	duplicates string
	now        func() time.Time
}

// NewDashboardService builds the service. duplicates is config.DuplicatesReject
// or config.DuplicatesAllow.
func NewDashboardService(store repository.Store, notifier Notifier, log *zap.Logger, duplicates string) DashboardService {
	if duplicates != config.DuplicatesAllow {
		duplicates = config.DuplicatesReject
	}
	return &dashboardService{
		store:      store,
		notifier:   notifierOrNoop(notifier),
		log:        log,
		duplicates: duplicates,
		now:        nowUTC,
	}
}

func (s *dashboardService) GetSubmitterDashboard(ctx context.Context, session auth.Session) (*SubmitterDashboard, error) {
	if err := requireRole(session, model.RoleSubmitter); err != nil {
		return nil, err
	}

	var ideas []model.Idea
	filter := repository.Filter{"submitter_id": session.UserID}
	if err := s.store.Find(ctx, repository.ModelIdea, filter, repository.OrderDesc("created_at"), &ideas); err != nil {
		return nil, storageFault(s.log, "submitter dashboard", err, zap.String("user_id", session.UserID))
	}

	dash := &SubmitterDashboard{Ideas: ideaRecords(ideas)}
	dash.Stats.Total = len(ideas)
	for _, idea := range ideas {
		switch {
		case model.IsPending(idea.Status):
			dash.Stats.Pending++
		case idea.Status == model.StatusApproved:
			dash.Stats.Approved++
		case idea.Status == model.StatusRejected:
			dash.Stats.Rejected++
		}
	}
	return dash, nil
}

func (s *dashboardService) GetEvaluatorDashboard(ctx context.Context, session auth.Session) (*EvaluatorDashboard, error) {
	if err := requireRole(session, model.RoleEvaluator); err != nil {
		return nil, err
	}

	var submitted, underReview []model.Idea
	var evaluations []model.Evaluation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.Find(gctx, repository.ModelIdea, repository.Filter{"status": model.StatusSubmitted},
			repository.OrderAsc("submitted_at"), &submitted)
	})
	g.Go(func() error {
		return s.store.Find(gctx, repository.ModelIdea, repository.Filter{"status": model.StatusUnderReview},
			repository.OrderAsc("submitted_at"), &underReview)
	})
	g.Go(func() error {
		return s.store.Find(gctx, repository.ModelEvaluation, repository.Filter{"evaluator_id": session.UserID},
			repository.OrderDesc("created_at"), &evaluations)
	})
	if err := g.Wait(); err != nil {
		return nil, storageFault(s.log, "evaluator dashboard", err, zap.String("user_id", session.UserID))
	}

	queue := mergeBySubmission(submitted, underReview)
	return &EvaluatorDashboard{
		PendingIdeas:  ideaRecords(queue),
		MyEvaluations: evaluationRecords(evaluations),
	}, nil
}

// mergeBySubmission joins two submitted_at ordered lists into one oldest-first
// queue. Equal times keep their input order; ideas without a submission time go last.
func mergeBySubmission(a, b []model.Idea) []model.Idea {
	queue := make([]model.Idea, 0, len(a)+len(b))
	queue = append(queue, a...)
	queue = append(queue, b...)
	sort.SliceStable(queue, func(i, j int) bool {
		ti, tj := queue[i].SubmittedAt, queue[j].SubmittedAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		}
		return ti.Before(*tj)
	})
	return queue
}

func (s *dashboardService) GetManagementDashboard(ctx context.Context, session auth.Session) (*ManagementDashboard, error) {
	if err := requireRole(session, model.RoleManagement); err != nil {
		return nil, err
	}
	ideas, users, err := s.managementData(ctx)
	if err != nil {
		return nil, storageFault(s.log, "management dashboard", err, zap.String("user_id", session.UserID))
	}

	return &ManagementDashboard{
		Ideas:      ideaRecords(ideas),
		Stats:      managementStats(ideas, users),
		ByCategory: buckets(ideas, model.Categories, func(i model.Idea) string { return i.Category }),
		ByStatus:   buckets(ideas, model.Statuses, func(i model.Idea) string { return i.Status }),
	}, nil
}

func (s *dashboardService) managementData(ctx context.Context) ([]model.Idea, int64, error) {
	var ideas []model.Idea
	var users int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.Find(gctx, repository.ModelIdea, nil, repository.OrderDesc("created_at"), &ideas)
	})
	g.Go(func() (err error) {
		users, err = s.store.Count(gctx, repository.ModelUser, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return ideas, users, nil
}

func managementStats(ideas []model.Idea, users int64) ManagementStats {
	stats := ManagementStats{Total: len(ideas), TotalUsers: users}
	for _, idea := range ideas {
		switch idea.Status {
		case model.StatusSubmitted, model.StatusUnderReview, model.StatusApproved:
			stats.Active++
		case model.StatusImplemented:
			stats.Implemented++
		}
	}
	stats.SuccessRate = successRate(stats.Implemented, stats.Total)
	return stats
}

// successRate is implemented/total as a whole percentage; zero when there are no ideas
func successRate(implemented, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(implemented) / float64(total) * 100))
}

// buckets counts ideas per key in the order of keys, skipping empty buckets
func buckets(ideas []model.Idea, keys []string, key func(model.Idea) string) []ChartPoint {
	counts := make(map[string]int, len(keys))
	for _, idea := range ideas {
		counts[key(idea)]++
	}
	points := make([]ChartPoint, 0, len(counts))
	for _, k := range keys {
		if n := counts[k]; n > 0 {
			points = append(points, ChartPoint{Name: model.DisplayLabel(k), Value: n})
		}
	}
	return points
}

func (s *dashboardService) CreateEvaluation(ctx context.Context, session auth.Session, req CreateEvaluationRequest) (model.Record, error) {
	if err := requireRole(session, model.RoleEvaluator); err != nil {
		return nil, err
	}
	req.Recommendation = strings.TrimSpace(req.Recommendation)
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	var idea model.Idea
	err := s.store.FindOne(ctx, repository.ModelIdea, repository.Filter{"id": req.IdeaID}, &idea)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("Idea not found")
	}
	if err != nil {
		return nil, storageFault(s.log, "load idea", err, zap.String("idea_id", req.IdeaID))
	}
	if !model.IsPending(idea.Status) {
		return nil, apperror.Conflict("Idea is not awaiting evaluation")
	}

	if s.duplicates == config.DuplicatesReject {
		n, err := s.store.Count(ctx, repository.ModelEvaluation, repository.Filter{
			"idea_id":      req.IdeaID,
			"evaluator_id": session.UserID,
		})
		if err != nil {
			return nil, storageFault(s.log, "count evaluations", err, zap.String("idea_id", req.IdeaID))
		}
		if n > 0 {
			return nil, apperror.Conflict("You have already evaluated this idea")
		}
	}

	evaluation := &model.Evaluation{
		IdeaID:           req.IdeaID,
		EvaluatorID:      session.UserID,
		FeasibilityScore: req.FeasibilityScore,
		ImpactScore:      req.ImpactScore,
		InnovationScore:  req.InnovationScore,
		OverallScore:     req.OverallScore,
		Recommendation:   req.Recommendation,
	}
	if feedback := strings.TrimSpace(req.Feedback); feedback != "" {
		evaluation.Feedback = &feedback
	}
	if s.duplicates == config.DuplicatesReject {
		// A second create with the same key fails on the primary key
		evaluation.ID = model.EvaluationKey(req.IdeaID, session.UserID)
	}
	err = s.store.Create(ctx, repository.ModelEvaluation, evaluation)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperror.Conflict("You have already evaluated this idea")
	}
	if err != nil {
		return nil, storageFault(s.log, "create evaluation", err, zap.String("idea_id", req.IdeaID))
	}

	metrics.EvaluationsCreated.Inc()
	record := normalize.Record(evaluation.Record())
	s.notifier.Publish(EventEvaluationCreated, record)
	return record, nil
}

// ExportManagement renders the management dashboard as an xlsx workbook
func (s *dashboardService) ExportManagement(ctx context.Context, session auth.Session) (*ExportFile, error) {
	if err := requireRole(session, model.RoleManagement); err != nil {
		return nil, err
	}
	ideas, users, err := s.managementData(ctx)
	if err != nil {
		return nil, storageFault(s.log, "management export", err, zap.String("user_id", session.UserID))
	}

	stats := managementStats(ideas, users)
	rows := make([][]any, 0, len(ideas))
	for _, r := range ideaRecords(ideas) {
		rows = append(rows, []any{
			r["title"], model.DisplayLabel(r["category"].(string)), model.DisplayLabel(r["status"].(string)),
			r["submitter_id"], r["priority_score"], r["average_evaluation_score"],
			r["implementation_cost"], r["expected_roi"], r["created_at"],
		})
	}
	summary := [][]any{
		{"Total ideas", stats.Total},
		{"Active", stats.Active},
		{"Implemented", stats.Implemented},
		{"Success rate (%)", stats.SuccessRate},
		{"Total users", stats.TotalUsers},
	}

	f, err := export.Workbook([]export.SheetSpec{
		{
			Title: "Ideas",
			Header: []string{"Title", "Category", "Status", "Submitter", "Priority",
				"Avg evaluation", "Implementation cost", "Expected ROI", "Created"},
			Rows: rows,
		},
		{Title: "Summary", Header: []string{"Metric", "Value"}, Rows: summary},
	})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer f.Close()

	data, err := export.Bytes(f)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return &ExportFile{
		Name:        export.Filename("ideas", s.now()),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

func ideaRecords(ideas []model.Idea) []model.Record {
	out := make([]model.Record, len(ideas))
	for i := range ideas {
		out[i] = normalize.Record(ideas[i].Record())
	}
	return out
}

func evaluationRecords(evaluations []model.Evaluation) []model.Record {
	out := make([]model.Record, len(evaluations))
	for i := range evaluations {
		out[i] = normalize.Record(evaluations[i].Record())
	}
	return out
}
