package model

import (
	"github.com/google/uuid"
)

type UserMembership struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ProjectID uint      `gorm:"not null;uniqueIndex:idx_user_membership,priority:1" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_user_membership,priority:2" json:"-"`

	CanSchedule    bool `gorm:"not null;default:false" json:"can_schedule"`
	CanDevelop     bool `gorm:"not null;default:false" json:"can_develop"`
	CanAccessFiles bool `gorm:"not null;default:false" json:"can_access_files"`
	AllowView      bool `gorm:"not null;default:false" json:"allow_view"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (UserMembership) TableName() string { return "user_memberships" }

type NodeMembership struct {
	ID        uint `gorm:"primaryKey" json:"-"`
	ProjectID uint `gorm:"not null;uniqueIndex:idx_node_membership,priority:1" json:"-"`
	NodeID    uint `gorm:"not null;index;uniqueIndex:idx_node_membership,priority:2" json:"-"`

	CanSchedule bool `gorm:"not null;default:false" json:"can_schedule"`
	CanDevelop  bool `gorm:"not null;default:false" json:"can_develop"`

	Project *Project `gorm:"foreignKey:ProjectID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
	Node    *Node    `gorm:"foreignKey:NodeID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (NodeMembership) TableName() string { return "node_memberships" }
