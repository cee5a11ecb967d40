package repository

import (
	"context"
	"errors"
	"fmt"

	"ideahub/internal/model"
)

// ModelName identifies one of the persisted entity kinds
type ModelName string

const (
	ModelIdea       ModelName = "Idea"
	ModelProfile    ModelName = "Profile"
	ModelEvaluation ModelName = "Evaluation"
	ModelUser       ModelName = "User"
)

// Direction of an ORDER BY
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderBy sorts a Find by a single field
type OrderBy struct {
	Field     string
	Direction Direction
}

func OrderAsc(field string) *OrderBy  { return &OrderBy{Field: field, Direction: Asc} }
func OrderDesc(field string) *OrderBy { return &OrderBy{Field: field, Direction: Desc} }

// Filter is a conjunction of field = value conditions. A nil value matches null.
type Filter map[string]any

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate key")
	ErrInvalidField = errors.New("invalid field")
	ErrUnknownModel = errors.New("unknown model")
	ErrImmutable    = errors.New("record is immutable")
	ErrDestination  = errors.New("destination does not match model")
)

// Store is the uniform data access facade. Every backend must behave the same
// for successful calls; error values other than the sentinels above may differ.
//
// Find fills dest (a pointer to a slice of the model's entity) with every
// matching record. FindOne fills dest (a pointer to the entity) or returns
// ErrNotFound. Update applies changes to the single record matched by filter
// and reloads it into dest. The filter is checked by the write itself, so a
// record that stopped matching concurrently yields ErrNotFound.
type Store interface {
	TransactionManager

	Find(ctx context.Context, name ModelName, filter Filter, order *OrderBy, dest any) error
	FindOne(ctx context.Context, name ModelName, filter Filter, dest any) error
	Count(ctx context.Context, name ModelName, filter Filter) (int64, error)
	Create(ctx context.Context, name ModelName, record any) error
	Update(ctx context.Context, name ModelName, filter Filter, changes map[string]any, dest any) error

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Backend() string
}

type schema struct {
	table     string
	fields    map[string]bool
	immutable map[string]bool
	readOnly  bool
}

func fieldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

var schemas = map[ModelName]schema{
	ModelUser: {
		table:     "users",
		fields:    fieldSet("id", "email", "password_hash", "created_at", "updated_at"),
		immutable: fieldSet("id", "created_at"),
	},
	ModelProfile: {
		table: "profiles",
		fields: fieldSet("id", "email", "full_name", "department", "role", "email_confirmed",
			"created_at", "updated_at"),
		immutable: fieldSet("id", "created_at"),
	},
	ModelIdea: {
		table: "ideas",
		fields: fieldSet("id", "title", "description", "category", "status", "submitter_id",
			"assigned_evaluator_id", "strategic_alignment_score", "priority_score",
			"average_evaluation_score", "implementation_cost", "expected_roi",
			"created_at", "updated_at", "submitted_at", "evaluated_at", "implemented_at"),
		immutable: fieldSet("id", "created_at", "submitter_id"),
	},
	ModelEvaluation: {
		table: "evaluations",
		fields: fieldSet("id", "idea_id", "evaluator_id", "feasibility_score", "impact_score",
			"innovation_score", "overall_score", "feedback", "recommendation", "created_at"),
		readOnly: true,
	},
}

func lookup(name ModelName) (schema, error) {
	s, ok := schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	return s, nil
}

func (s schema) checkFilter(filter Filter) error {
	for field := range filter {
		if !s.fields[field] {
			return fmt.Errorf("%w: %s.%s", ErrInvalidField, s.table, field)
		}
	}
	return nil
}

func (s schema) checkOrder(order *OrderBy) error {
	if order == nil {
		return nil
	}
	if !s.fields[order.Field] {
		return fmt.Errorf("%w: %s.%s", ErrInvalidField, s.table, order.Field)
	}
	if order.Direction != Asc && order.Direction != Desc {
		return fmt.Errorf("%w: direction %q", ErrInvalidField, order.Direction)
	}
	return nil
}

func (s schema) checkChanges(changes map[string]any) error {
	if s.readOnly {
		return fmt.Errorf("%w: %s", ErrImmutable, s.table)
	}
	if len(changes) == 0 {
		return fmt.Errorf("%w: empty update", ErrInvalidField)
	}
	for field := range changes {
		if !s.fields[field] || s.immutable[field] {
			return fmt.Errorf("%w: %s.%s cannot be updated", ErrInvalidField, s.table, field)
		}
	}
	return nil
}

// checkOne verifies that dest points at the entity type of name
func checkOne(name ModelName, dest any) error {
	var got ModelName
	switch dest.(type) {
	case *model.Idea:
		got = ModelIdea
	case *model.Profile:
		got = ModelProfile
	case *model.Evaluation:
		got = ModelEvaluation
	case *model.User:
		got = ModelUser
	}
	if got != name {
		return fmt.Errorf("%w: %s got %T", ErrDestination, name, dest)
	}
	return nil
}

// checkList verifies that dest points at a slice of the entity type of name
func checkList(name ModelName, dest any) error {
	var got ModelName
	switch dest.(type) {
	case *[]model.Idea:
		got = ModelIdea
	case *[]model.Profile:
		got = ModelProfile
	case *[]model.Evaluation:
		got = ModelEvaluation
	case *[]model.User:
		got = ModelUser
	}
	if got != name {
		return fmt.Errorf("%w: %s got %T", ErrDestination, name, dest)
	}
	return nil
}

// entityID returns the primary key of a single-entity destination
func entityID(dest any) string {
	switch e := dest.(type) {
	case *model.Idea:
		return e.ID
	case *model.Profile:
		return e.ID
	case *model.Evaluation:
		return e.ID
	case *model.User:
		return e.ID
	}
	return ""
}
