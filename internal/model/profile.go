package model

import (
	"time"

	"github.com/google/uuid"
)

// Role constants. A profile carries exactly one of them.
const (
	RoleSubmitter  = "submitter"
	RoleEvaluator  = "evaluator"
	RoleManagement = "management"
)

// Roles lists every role a profile may hold.
var Roles = []string{RoleSubmitter, RoleEvaluator, RoleManagement}

// IsValidRole reports whether role is one of the known roles
func IsValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Record is the transport projection of an entity: field name to value.
type Record = map[string]any

// User is the credential record. Its ID is shared with the matching Profile.
type User struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" bson:"email" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255)" bson:"password_hash" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" bson:"updated_at" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Stamp fills the generated id and timestamps before insertion
func (u *User) Stamp(now time.Time) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
}

// Profile is the application-level identity and role record
type Profile struct {
	ID             string    `gorm:"type:varchar(36);primaryKey" bson:"_id" json:"id"`
	Email          *string   `gorm:"type:varchar(255);uniqueIndex" bson:"email,omitempty" json:"email"`
	FullName       string    `gorm:"type:varchar(255);not null" bson:"full_name" json:"full_name"`
	Department     *string   `gorm:"type:varchar(255)" bson:"department" json:"department"`
	Role           string    `gorm:"type:varchar(20);not null;default:'submitter';index" bson:"role" json:"role"`
	EmailConfirmed bool      `gorm:"default:false" bson:"email_confirmed" json:"email_confirmed"`
	CreatedAt      time.Time `gorm:"autoCreateTime" bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" bson:"updated_at" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) Stamp(now time.Time) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// Record projects the profile for transport
func (p *Profile) Record() Record {
	return Record{
		"id":              p.ID,
		"email":           derefString(p.Email),
		"full_name":       p.FullName,
		"department":      derefString(p.Department),
		"role":            p.Role,
		"email_confirmed": p.EmailConfirmed,
		"created_at":      p.CreatedAt,
		"updated_at":      p.UpdatedAt,
	}
}

func derefString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
