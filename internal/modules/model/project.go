package model

import (
	"time"
)

// Project is a permissions group that users and nodes belong to, not the organization owning a node.
type Project struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"type:varchar(255);not null;uniqueIndex" json:"name"`
	IncludeInAPI bool   `gorm:"not null;default:true" json:"include_in_api"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Project <-> UserMembership
	UserMemberships []UserMembership `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Project <-> NodeMembership
	NodeMemberships []NodeMembership `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Project) TableName() string { return "projects" }
