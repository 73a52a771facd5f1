package serializer

import (
	"sort"

	"github.com/waggle-sensor/facilities/internal/modules/model"
)

type Project struct {
	Name          string   `json:"name"`
	Users         []string `json:"users"`
	Nodes         []string `json:"nodes"`
	NumberOfUsers int      `json:"number_of_users"`
	NumberOfNodes int      `json:"number_of_nodes"`
}

// NewProject expects memberships to be loaded with their users and nodes.
func NewProject(p *model.Project) Project {
	out := Project{
		Name:  p.Name,
		Users: make([]string, 0, len(p.UserMemberships)),
		Nodes: make([]string, 0, len(p.NodeMemberships)),
	}
	for _, m := range p.UserMemberships {
		if m.User != nil {
			out.Users = append(out.Users, m.User.Username)
		}
	}
	for _, m := range p.NodeMemberships {
		if m.Node != nil {
			out.Nodes = append(out.Nodes, m.Node.VSN)
		}
	}
	sort.Strings(out.Users)
	sort.Strings(out.Nodes)
	out.NumberOfUsers = len(p.UserMemberships)
	out.NumberOfNodes = len(p.NodeMemberships)
	return out
}

func NewProjects(ps []*model.Project) []Project {
	out := make([]Project, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewProject(p))
	}
	return out
}

type UserMembership struct {
	Project        string `json:"project"`
	Username       string `json:"username"`
	CanSchedule    bool   `json:"can_schedule"`
	CanDevelop     bool   `json:"can_develop"`
	CanAccessFiles bool   `json:"can_access_files"`
	AllowView      bool   `json:"allow_view"`
}

// NewUserMembership fills names from the loaded project and user. Missing relations leave them empty.
func NewUserMembership(m *model.UserMembership) UserMembership {
	out := UserMembership{
		CanSchedule:    m.CanSchedule,
		CanDevelop:     m.CanDevelop,
		CanAccessFiles: m.CanAccessFiles,
		AllowView:      m.AllowView,
	}
	if m.Project != nil {
		out.Project = m.Project.Name
	}
	if m.User != nil {
		out.Username = m.User.Username
	}
	return out
}

type NodeMembership struct {
	Project     string `json:"project"`
	VSN         string `json:"vsn"`
	CanSchedule bool   `json:"can_schedule"`
	CanDevelop  bool   `json:"can_develop"`
}

func NewNodeMembership(m *model.NodeMembership) NodeMembership {
	out := NodeMembership{CanSchedule: m.CanSchedule, CanDevelop: m.CanDevelop}
	if m.Project != nil {
		out.Project = m.Project.Name
	}
	if m.Node != nil {
		out.VSN = m.Node.VSN
	}
	return out
}
