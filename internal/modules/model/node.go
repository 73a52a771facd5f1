package model

import (
	"time"
)

type Node struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	VSN               string     `gorm:"type:varchar(30);not null;uniqueIndex" json:"vsn"`
	MAC               *string    `gorm:"type:varchar(16);uniqueIndex" json:"mac"`
	FilesPublic       bool       `gorm:"not null;default:false" json:"files_public"`
	CommissioningDate *time.Time `json:"commissioning_date"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Node <-> NodeMembership
	Memberships []NodeMembership `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`

	// Node <-> NodeToken
	Token *NodeToken `gorm:"constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (Node) TableName() string { return "nodes" }

// NodeToken is the node's bearer credential. Only the HMAC lookup key and the argon2 PHC hash are stored.
type NodeToken struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	NodeID        uint   `gorm:"not null;uniqueIndex" json:"node_id"`
	SecretKeyHMAC string `gorm:"type:char(64);uniqueIndex;not null" json:"-"`
	// SecretKeyHashPHC stores the argon2id PHC string of the secret.
	SecretKeyHashPHC string `gorm:"type:varchar(255);not null" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (NodeToken) TableName() string { return "node_tokens" }
