package model

import (
	"time"

	"github.com/google/uuid"
)

// Score bounds shared by every evaluation criterion
const (
	MinScore = 1
	MaxScore = 10
)

// Evaluation is one evaluator's scoring of one idea. It is immutable once created.
type Evaluation struct {
	ID               string    `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	IdeaID           string    `gorm:"type:varchar(36);not null;index" bson:"idea_id" json:"idea_id"`
	EvaluatorID      string    `gorm:"type:varchar(36);not null;index" bson:"evaluator_id" json:"evaluator_id"`
	FeasibilityScore int       `gorm:"not null" bson:"feasibility_score" json:"feasibility_score"`
	ImpactScore      int       `gorm:"not null" bson:"impact_score" json:"impact_score"`
	InnovationScore  int       `gorm:"not null" bson:"innovation_score" json:"innovation_score"`
	OverallScore     int       `gorm:"not null" bson:"overall_score" json:"overall_score"`
	Feedback         *string   `gorm:"type:text" bson:"feedback" json:"feedback"`
	Recommendation   string    `gorm:"type:varchar(50);not null" bson:"recommendation" json:"recommendation"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" bson:"created_at" json:"created_at"`
}

var evaluationNamespace = uuid.MustParse("6f1c2a7e-4b0d-4e8a-9c55-3d2f8b7a1e90")

// EvaluationKey derives the id of the single evaluation an evaluator may hold on an idea
func EvaluationKey(ideaID, evaluatorID string) string {
	return uuid.NewSHA1(evaluationNamespace, []byte(ideaID+"/"+evaluatorID)).String()
}

func (Evaluation) TableName() string { return "evaluations" }

func (e *Evaluation) Stamp(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
}

func (e *Evaluation) Record() Record {
	return Record{
		"id":                e.ID,
		"idea_id":           e.IdeaID,
		"evaluator_id":      e.EvaluatorID,
		"feasibility_score": e.FeasibilityScore,
		"impact_score":      e.ImpactScore,
		"innovation_score":  e.InnovationScore,
		"overall_score":     e.OverallScore,
		"feedback":          derefString(e.Feedback),
		"recommendation":    e.Recommendation,
		"created_at":        e.CreatedAt,
	}
}

// Stampable is implemented by entities that carry generated ids and timestamps
type Stampable interface {
	Stamp(now time.Time)
}
