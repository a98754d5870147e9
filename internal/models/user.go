package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin         = "admin"
	RoleCorrespondent = "correspondent"
	RoleStudent       = "student"
)

// ValidRole reports whether r is one of the three account roles.
func ValidRole(r string) bool {
	switch r {
	case RoleAdmin, RoleCorrespondent, RoleStudent:
		return true
	}
	return false
}

// User mirrors an identity-provider account. Exactly one role per user.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ExternalID string    `gorm:"size:255;not null;uniqueIndex" json:"external_id"`
	Role       string    `gorm:"size:20;not null;default:'student';index" json:"role"`
	IsVerified bool      `gorm:"not null;default:false" json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
