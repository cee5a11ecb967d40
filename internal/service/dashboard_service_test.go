package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"ideahub/internal/apperror"
	"ideahub/internal/auth"
	"ideahub/internal/config"
	"ideahub/internal/model"
	"ideahub/internal/repository"
	"ideahub/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newDashboardService(t *testing.T, duplicates string) (*dashboardService, repository.Store, *recordingNotifier) {
	store := testutil.NewStore(t)
	notifier := &recordingNotifier{}
	svc := NewDashboardService(store, notifier, zap.NewNop(), duplicates).(*dashboardService)
	return svc, store, notifier
}

func evaluationFor(ideaID string, overall int) CreateEvaluationRequest {
	return CreateEvaluationRequest{
		IdeaID:           ideaID,
		FeasibilityScore: 7,
		ImpactScore:      6,
		InnovationScore:  9,
		OverallScore:     overall,
		Recommendation:   "approve",
	}
}

func TestSubmitterDashboardStats(t *testing.T) {
	svc, store, _ := newDashboardService(t, config.DuplicatesReject)
	ctx := context.Background()

	statuses := []string{
		model.StatusDraft, model.StatusSubmitted, model.StatusUnderReview,
		model.StatusApproved, model.StatusRejected, model.StatusImplemented,
	}
	for i, status := range statuses {
		seedIdea(t, store, model.Idea{
			Status:        status,
			SubmitterID:   "u1",
			CreatedAt:     *at(i),
			PriorityScore: decimal.NewNullDecimal(decimal.RequireFromString("4.25")),
		})
	}
	seedIdea(t, store, model.Idea{Status: model.StatusSubmitted, SubmitterID: "u2", CreatedAt: *at(10)})

	dash, err := svc.GetSubmitterDashboard(ctx, submitterU1)
	require.NoError(t, err)

	assert.Equal(t, SubmitterStats{Total: 6, Pending: 2, Approved: 1, Rejected: 1}, dash.Stats)
	assert.LessOrEqual(t, dash.Stats.Pending+dash.Stats.Approved+dash.Stats.Rejected, dash.Stats.Total)

	require.Len(t, dash.Ideas, 6)
	assert.Equal(t, model.StatusImplemented, dash.Ideas[0]["status"], "newest first")
	assert.Equal(t, model.StatusDraft, dash.Ideas[5]["status"])
	for _, idea := range dash.Ideas {
		assert.Equal(t, "u1", idea["submitter_id"])
		assert.Equal(t, 4.25, idea["priority_score"])
		assert.Nil(t, idea["expected_roi"])
	}
}

func TestSubmitterDashboardEmpty(t *testing.T) {
	svc, _, _ := newDashboardService(t, config.DuplicatesReject)

	dash, err := svc.GetSubmitterDashboard(context.Background(), submitterU1)
	require.NoError(t, err)
	assert.Empty(t, dash.Ideas)
	assert.Zero(t, dash.Stats.Total)
}

func TestDashboardsAreRoleGated(t *testing.T) {
	svc, _, _ := newDashboardService(t, config.DuplicatesReject)
	ctx := context.Background()

	_, err := svc.GetSubmitterDashboard(ctx, auth.Session{})
	assert.True(t, apperror.IsKind(err, apperror.KindUnauthorized))

	_, err = svc.GetSubmitterDashboard(ctx, evaluatorE1)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = svc.GetEvaluatorDashboard(ctx, submitterU1)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = svc.GetManagementDashboard(ctx, evaluatorE1)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = svc.CreateEvaluation(ctx, managerM1, evaluationFor("x", 5))
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	_, err = svc.ExportManagement(ctx, submitterU1)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
}

func TestManagementDashboardWithoutIdeas(t *testing.T) {
	svc, _, _ := newDashboardService(t, config.DuplicatesReject)

	dash, err := svc.GetManagementDashboard(context.Background(), managerM1)
	require.NoError(t, err)
	assert.Zero(t, dash.Stats.Total)
	assert.Zero(t, dash.Stats.SuccessRate)
	assert.Empty(t, dash.ByCategory)
	assert.Empty(t, dash.ByStatus)
}

func TestManagementDashboardAggregates(t *testing.T) {
	svc, store, _ := newDashboardService(t, config.DuplicatesReject)
	ctx := context.Background()

	seedIdea(t, store, model.Idea{Status: model.StatusSubmitted, SubmitterID: "u1", Category: model.CategoryProcessImprovement})
	seedIdea(t, store, model.Idea{Status: model.StatusUnderReview, SubmitterID: "u1", Category: model.CategoryTechnology})
	seedIdea(t, store, model.Idea{Status: model.StatusApproved, SubmitterID: "u2", Category: model.CategoryProcessImprovement})
	seedIdea(t, store, model.Idea{Status: model.StatusImplemented, SubmitterID: "u2", Category: model.CategoryCostReduction,
		ImplementationCost: decimal.NewNullDecimal(decimal.RequireFromString("12500.50"))})
	seedIdea(t, store, model.Idea{Status: model.StatusRejected, SubmitterID: "u2", Category: model.CategoryTechnology})
	seedIdea(t, store, model.Idea{Status: model.StatusDraft, SubmitterID: "u2", Category: model.CategoryTechnology})
	require.NoError(t, store.Create(ctx, repository.ModelUser, &model.User{Email: "a@example.com", PasswordHash: "x"}))
	require.NoError(t, store.Create(ctx, repository.ModelUser, &model.User{Email: "b@example.com", PasswordHash: "x"}))

	dash, err := svc.GetManagementDashboard(ctx, managerM1)
	require.NoError(t, err)

	assert.Equal(t, ManagementStats{Total: 6, Active: 3, Implemented: 1, SuccessRate: 17, TotalUsers: 2}, dash.Stats)
	assert.Equal(t, []ChartPoint{
		{Name: "process improvement", Value: 2},
		{Name: "cost reduction", Value: 1},
		{Name: "technology", Value: 3},
	}, dash.ByCategory)
	assert.Equal(t, []ChartPoint{
		{Name: "draft", Value: 1},
		{Name: "submitted", Value: 1},
		{Name: "under review", Value: 1},
		{Name: "approved", Value: 1},
		{Name: "rejected", Value: 1},
		{Name: "implemented", Value: 1},
	}, dash.ByStatus)

	require.Len(t, dash.Ideas, 6)
	var cost any
	for _, idea := range dash.Ideas {
		if idea["status"] == model.StatusImplemented {
			cost = idea["implementation_cost"]
		}
	}
	assert.Equal(t, 12500.5, cost)
}

func TestSuccessRate(t *testing.T) {
	assert.Equal(t, 0, successRate(0, 0))
	assert.Equal(t, 25, successRate(1, 4))
	assert.Equal(t, 67, successRate(2, 3))
	assert.Equal(t, 100, successRate(5, 5))
}

func TestEvaluatorQueueIsOldestFirst(t *testing.T) {
	svc, store, _ := newDashboardService(t, config.DuplicatesReject)
	ctx := context.Background()

	third := seedIdea(t, store, model.Idea{Title: "T3", Status: model.StatusSubmitted, SubmitterID: "u1", SubmittedAt: at(30)})
	first := seedIdea(t, store, model.Idea{Title: "T1", Status: model.StatusSubmitted, SubmitterID: "u1", SubmittedAt: at(10)})
	second := seedIdea(t, store, model.Idea{Title: "T2", Status: model.StatusUnderReview, SubmitterID: "u2", SubmittedAt: at(20)})
	seedIdea(t, store, model.Idea{Title: "done", Status: model.StatusApproved, SubmitterID: "u2", SubmittedAt: at(5)})
	seedIdea(t, store, model.Idea{Title: "draft", Status: model.StatusDraft, SubmitterID: "u2"})

	dash, err := svc.GetEvaluatorDashboard(ctx, evaluatorE1)
	require.NoError(t, err)

	var ids []any
	for _, idea := range dash.PendingIdeas {
		ids = append(ids, idea["id"])
	}
	assert.Equal(t, []any{first.ID, second.ID, third.ID}, ids)
	assert.Empty(t, dash.MyEvaluations)
}

func TestMergeBySubmissionPutsUnsubmittedLast(t *testing.T) {
	a := []model.Idea{{ID: "a1", SubmittedAt: at(1)}, {ID: "a3", SubmittedAt: at(3)}}
	b := []model.Idea{{ID: "nil"}, {ID: "b2", SubmittedAt: at(2)}, {ID: "b3", SubmittedAt: at(3)}}

	var ids []string
	for _, idea := range mergeBySubmission(a, b) {
		ids = append(ids, idea.ID)
	}
	assert.Equal(t, []string{"a1", "b2", "a3", "b3", "nil"}, ids)
}

func TestSubmitEvaluateScenario(t *testing.T) {
	store := testutil.NewStore(t)
	notifier := &recordingNotifier{}
	ideas := NewIdeaService(store, notifier, zap.NewNop())
	dashboards := NewDashboardService(store, notifier, zap.NewNop(), config.DuplicatesReject)
	ctx := context.Background()

	created, err := ideas.CreateIdea(ctx, submitterU1, CreateIdeaRequest{
		Title:       "X",
		Description: "desc",
		Category:    model.CategoryTechnology,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, created["status"])
	assert.Equal(t, "u1", created["submitter_id"])
	ideaID := created["id"].(string)

	queue, err := dashboards.GetEvaluatorDashboard(ctx, evaluatorE1)
	require.NoError(t, err)
	require.Len(t, queue.PendingIdeas, 1)
	assert.Equal(t, ideaID, queue.PendingIdeas[0]["id"])

	evaluation, err := dashboards.CreateEvaluation(ctx, evaluatorE1, evaluationFor(ideaID, 8))
	require.NoError(t, err)
	assert.Equal(t, "e1", evaluation["evaluator_id"])
	assert.Nil(t, evaluation["feedback"])

	after, err := dashboards.GetEvaluatorDashboard(ctx, evaluatorE1)
	require.NoError(t, err)
	require.Len(t, after.MyEvaluations, 1)
	assert.Equal(t, ideaID, after.MyEvaluations[0]["idea_id"])
	assert.Equal(t, 8, after.MyEvaluations[0]["overall_score"])

	other, err := dashboards.GetEvaluatorDashboard(ctx, evaluatorE2)
	require.NoError(t, err)
	assert.Empty(t, other.MyEvaluations)

	assert.Equal(t, []string{EventIdeaCreated, EventEvaluationCreated}, notifier.names())
}

func TestCreateEvaluationRules(t *testing.T) {
	ctx := context.Background()

	t.Run("scores out of range", func(t *testing.T) {
		svc, store, _ := newDashboardService(t, config.DuplicatesReject)
		idea := seedIdea(t, store, model.Idea{Status: model.StatusSubmitted, SubmitterID: "u1"})

		_, err := svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 11))
		require.Error(t, err)
		appErr := apperror.From(err)
		assert.Equal(t, apperror.KindValidation, appErr.Kind)
		assert.Contains(t, appErr.Details, "overall_score")
	})

	t.Run("missing idea", func(t *testing.T) {
		svc, _, _ := newDashboardService(t, config.DuplicatesReject)
		_, err := svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor("missing", 5))
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
	})

	t.Run("idea not awaiting evaluation", func(t *testing.T) {
		svc, store, _ := newDashboardService(t, config.DuplicatesReject)
		idea := seedIdea(t, store, model.Idea{Status: model.StatusDraft, SubmitterID: "u1"})
		_, err := svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 5))
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))
	})

	t.Run("feedback is kept when present", func(t *testing.T) {
		svc, store, _ := newDashboardService(t, config.DuplicatesReject)
		idea := seedIdea(t, store, model.Idea{Status: model.StatusUnderReview, SubmitterID: "u1"})
		req := evaluationFor(idea.ID, 6)
		req.Feedback = "  solid plan "
		record, err := svc.CreateEvaluation(ctx, evaluatorE1, req)
		require.NoError(t, err)
		assert.Equal(t, "solid plan", record["feedback"])
	})

	t.Run("duplicate rejected by default", func(t *testing.T) {
		svc, store, _ := newDashboardService(t, "")
		idea := seedIdea(t, store, model.Idea{Status: model.StatusSubmitted, SubmitterID: "u1"})
		_, err := svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 5))
		require.NoError(t, err)
		_, err = svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 6))
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))

		_, err = svc.CreateEvaluation(ctx, evaluatorE2, evaluationFor(idea.ID, 6))
		assert.NoError(t, err, "another evaluator may still score the idea")
	})

	t.Run("duplicate rejected when the count misses a concurrent create", func(t *testing.T) {
		inner := testutil.NewStore(t)
		idea := seedIdea(t, inner, model.Idea{Status: model.StatusSubmitted, SubmitterID: "u1"})
		store := &blindCountStore{Store: inner}
		svc := NewDashboardService(store, nil, zap.NewNop(), config.DuplicatesReject)

		_, err := svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 5))
		require.NoError(t, err)
		_, err = svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 6))
		assert.True(t, apperror.IsKind(err, apperror.KindConflict))

		n, err := inner.Count(ctx, repository.ModelEvaluation, repository.Filter{"idea_id": idea.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("duplicate allowed when configured", func(t *testing.T) {
		svc, store, _ := newDashboardService(t, config.DuplicatesAllow)
		idea := seedIdea(t, store, model.Idea{Status: model.StatusSubmitted, SubmitterID: "u1"})
		_, err := svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 5))
		require.NoError(t, err)
		_, err = svc.CreateEvaluation(ctx, evaluatorE1, evaluationFor(idea.ID, 6))
		require.NoError(t, err)

		n, err := store.Count(ctx, repository.ModelEvaluation, repository.Filter{"idea_id": idea.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestExportManagement(t *testing.T) {
	svc, store, _ := newDashboardService(t, config.DuplicatesReject)
	svc.now = func() time.Time { return baseTime }
	ctx := context.Background()

	seedIdea(t, store, model.Idea{Title: "Solar roof", Status: model.StatusImplemented, SubmitterID: "u1",
		Category: model.CategorySustainability, PriorityScore: decimal.NewNullDecimal(decimal.RequireFromString("8.5"))})
	seedIdea(t, store, model.Idea{Title: "Chat kiosk", Status: model.StatusSubmitted, SubmitterID: "u2",
		Category: model.CategoryCustomerExperience})

	file, err := svc.ExportManagement(ctx, managerM1)
	require.NoError(t, err)
	assert.Equal(t, "ideas_2026-03-01.xlsx", file.Name)
	assert.Equal(t, xlsxContentType, file.ContentType)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("Ideas")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Title", rows[0][0])

	titles := []string{rows[1][0], rows[2][0]}
	assert.ElementsMatch(t, []string{"Solar roof", "Chat kiosk"}, titles)

	rate, err := wb.GetCellValue("Summary", "B5")
	require.NoError(t, err)
	assert.Equal(t, "50", rate)
}

// blindCountStore reports no evaluations, as two interleaved requests would both see
type blindCountStore struct {
	repository.Store
}

func (b *blindCountStore) Count(ctx context.Context, name repository.ModelName, filter repository.Filter) (int64, error) {
	if name == repository.ModelEvaluation {
		return 0, nil
	}
	return b.Store.Count(ctx, name, filter)
}
