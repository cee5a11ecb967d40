package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ideahub/internal/auth"
	"ideahub/internal/model"
	"ideahub/internal/repository"

	"github.com/stretchr/testify/require"
)

var (
	submitterU1 = auth.Session{UserID: "u1", Role: model.RoleSubmitter, FullName: "Una Submitter"}
	submitterU2 = auth.Session{UserID: "u2", Role: model.RoleSubmitter, FullName: "Uri Submitter"}
	evaluatorE1 = auth.Session{UserID: "e1", Role: model.RoleEvaluator, FullName: "Eve Evaluator"}
	evaluatorE2 = auth.Session{UserID: "e2", Role: model.RoleEvaluator, FullName: "Eli Evaluator"}
	managerM1   = auth.Session{UserID: "m1", Role: model.RoleManagement, FullName: "Max Manager"}
)

type publishedEvent struct {
	Event string
	Data  any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(event string, data any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Event: event, Data: data})
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.Event
	}
	return out
}

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	t := baseTime.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func seedIdea(t *testing.T, store repository.Store, idea model.Idea) model.Idea {
	t.Helper()
	if idea.Title == "" {
		idea.Title = "Idea " + idea.Status
	}
	if idea.Description == "" {
		idea.Description = "desc"
	}
	if idea.Category == "" {
		idea.Category = model.CategoryTechnology
	}
	require.NoError(t, store.Create(context.Background(), repository.ModelIdea, &idea))
	return idea
}

// racingStore runs beforeUpdate once, ahead of the first Update, to stand in
// for a competing request that commits between a read and a write.
type racingStore struct {
	repository.Store
	once         sync.Once
	beforeUpdate func(ctx context.Context)
}

func (r *racingStore) Update(ctx context.Context, name repository.ModelName, filter repository.Filter, changes map[string]any, dest any) error {
	r.once.Do(func() { r.beforeUpdate(ctx) })
	return r.Store.Update(ctx, name, filter, changes, dest)
}
