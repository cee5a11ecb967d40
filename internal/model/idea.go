package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Idea categories
const (
	CategoryInnovation         = "innovation"
	CategoryProcessImprovement = "process_improvement"
	CategoryCostReduction      = "cost_reduction"
	CategoryCustomerExperience = "customer_experience"
	CategoryTechnology         = "technology"
	CategorySustainability     = "sustainability"
)

// Categories is ordered the way dashboards list them.
var Categories = []string{
	CategoryInnovation,
	CategoryProcessImprovement,
	CategoryCostReduction,
	CategoryCustomerExperience,
	CategoryTechnology,
	CategorySustainability,
}

// Idea statuses
const (
	StatusDraft       = "draft"
	StatusSubmitted   = "submitted"
	StatusUnderReview = "under_review"
	StatusApproved    = "approved"
	StatusRejected    = "rejected"
	StatusImplemented = "implemented"
)

// Statuses is ordered along the review lifecycle.
var Statuses = []string{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusImplemented,
}

// statusRank positions each status in the lifecycle. Approved and rejected share a rank.
var statusRank = map[string]int{
	StatusDraft:       0,
	StatusSubmitted:   1,
	StatusUnderReview: 2,
	StatusApproved:    3,
	StatusRejected:    3,
	StatusImplemented: 4,
}

func IsValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

func IsValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok
}

// IsReviewStatus reports whether s is a status reviewers may set. Leaving
// draft is reserved to the submitter.
func IsReviewStatus(s string) bool {
	return IsValidStatus(s) && s != StatusDraft && s != StatusSubmitted
}

// CanTransition reports whether an idea may move from one status to another.
// Moves only go forward; rejected is terminal and only approved ideas get implemented.
func CanTransition(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok || toRank <= fromRank {
		return false
	}
	switch to {
	case StatusImplemented:
		return from == StatusApproved
	case StatusApproved, StatusRejected:
		return from == StatusSubmitted || from == StatusUnderReview
	}
	return from != StatusRejected
}

// IsPending reports whether the status is awaiting evaluation
func IsPending(status string) bool {
	return status == StatusSubmitted || status == StatusUnderReview
}

// DisplayLabel turns an enum value into a chart label
func DisplayLabel(v string) string {
	return strings.ReplaceAll(v, "_", " ")
}

// Idea is a submitted proposal moving through the review lifecycle
type Idea struct {
	ID                  string  `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	Title               string  `gorm:"type:varchar(255);not null" bson:"title" json:"title"`
	Description         string  `gorm:"type:text;not null" bson:"description" json:"description"`
	Category            string  `gorm:"type:varchar(40);not null;index" bson:"category" json:"category"`
	Status              string  `gorm:"type:varchar(20);not null;default:'draft';index" bson:"status" json:"status"`
	SubmitterID         string  `gorm:"type:varchar(36);not null;index" bson:"submitter_id" json:"submitter_id"`
	AssignedEvaluatorID *string `gorm:"type:varchar(36);index" bson:"assigned_evaluator_id" json:"assigned_evaluator_id"`

	// Scores and financials are stored with exact precision
	StrategicAlignmentScore decimal.NullDecimal `gorm:"type:decimal(5,2)" bson:"strategic_alignment_score" json:"strategic_alignment_score"`
	PriorityScore           decimal.NullDecimal `gorm:"type:decimal(5,2)" bson:"priority_score" json:"priority_score"`
	AverageEvaluationScore  decimal.NullDecimal `gorm:"type:decimal(5,2)" bson:"average_evaluation_score" json:"average_evaluation_score"`
	ImplementationCost      decimal.NullDecimal `gorm:"type:decimal(18,2)" bson:"implementation_cost" json:"implementation_cost"`
	ExpectedROI             decimal.NullDecimal `gorm:"column:expected_roi;type:decimal(10,2)" bson:"expected_roi" json:"expected_roi"`

	CreatedAt     time.Time  `gorm:"autoCreateTime;index" bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" bson:"updated_at" json:"updated_at"`
	SubmittedAt   *time.Time `gorm:"index" bson:"submitted_at" json:"submitted_at"`
	EvaluatedAt   *time.Time `bson:"evaluated_at" json:"evaluated_at"`
	ImplementedAt *time.Time `bson:"implemented_at" json:"implemented_at"`
}

func (Idea) TableName() string { return "ideas" }

func (i *Idea) Stamp(now time.Time) {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	i.UpdatedAt = now
}

// Record projects the idea for transport. Decimal fields are left as decimals.
func (i *Idea) Record() Record {
	return Record{
		"id":                        i.ID,
		"title":                     i.Title,
		"description":               i.Description,
		"category":                  i.Category,
		"status":                    i.Status,
		"submitter_id":              i.SubmitterID,
		"assigned_evaluator_id":     derefString(i.AssignedEvaluatorID),
		"strategic_alignment_score": i.StrategicAlignmentScore,
		"priority_score":            i.PriorityScore,
		"average_evaluation_score":  i.AverageEvaluationScore,
		"implementation_cost":       i.ImplementationCost,
		"expected_roi":              i.ExpectedROI,
		"created_at":                i.CreatedAt,
		"updated_at":                i.UpdatedAt,
		"submitted_at":              derefTime(i.SubmittedAt),
		"evaluated_at":              derefTime(i.EvaluatedAt),
		"implemented_at":            derefTime(i.ImplementedAt),
	}
}

func derefTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
