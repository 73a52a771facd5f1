package serializer

import (
	"time"

	"github.com/waggle-sensor/facilities/internal/modules/model"
)

type Node struct {
	VSN               string     `json:"vsn"`
	MAC               *string    `json:"mac"`
	FilesPublic       bool       `json:"files_public"`
	CommissioningDate *time.Time `json:"commissioning_date"`
}

func NewNode(n *model.Node) Node {
	return Node{
		VSN:               n.VSN,
		MAC:               n.MAC,
		FilesPublic:       n.FilesPublic,
		CommissioningDate: n.CommissioningDate,
	}
}

func NewNodes(ns []*model.Node) []Node {
	out := make([]Node, 0, len(ns))
	for _, n := range ns {
		out = append(out, NewNode(n))
	}
	return out
}

// NodeWithToken is returned once, when a token is issued.
type NodeWithToken struct {
	Node
	Token string `json:"token"`
}

// NodeSelf is what an authenticated node sees about itself.
type NodeSelf struct {
	Node
	Projects []NodeMembership `json:"projects"`
}
