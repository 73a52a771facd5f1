package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account holder. IDs are UUIDs so external identity providers can key on them.
type User struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username string    `gorm:"type:varchar(150);not null;uniqueIndex" json:"username"`
	Email    string    `gorm:"type:varchar(254);not null;default:''" json:"email"`
	// a single name instead of first/last
	Name          string `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Organization  string `gorm:"type:varchar(255);not null;default:''" json:"organization"`
	Department    string `gorm:"type:varchar(255);not null;default:''" json:"department"`
	Bio           string `gorm:"type:varchar(2000);not null;default:''" json:"bio"`
	SSHPublicKeys string `gorm:"type:text;not null;default:''" json:"ssh_public_keys"`

	IsActive    bool `gorm:"not null;default:true" json:"is_active"`
	IsStaff     bool `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"not null;default:false" json:"is_superuser"`
	IsApproved  bool `gorm:"not null;default:false" json:"is_approved"`

	DateJoined time.Time  `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"date_joined"`
	LastLogin  *time.Time `json:"last_login"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// User <-> UserMembership
	Memberships []UserMembership `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (User) TableName() string { return "users" }
