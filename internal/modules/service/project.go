package service

import (
	"context"
	"errors"
	"strings"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/pkg/paging"
	"go.uber.org/zap"
)

// FormInvalidator drops cached allocation-request form documents.
type FormInvalidator interface {
	Invalidate(ctx context.Context)
}

type ProjectService interface {
	Create(ctx context.Context, in CreateProjectInput) (*model.Project, error)
	Get(ctx context.Context, name string) (*model.Project, error)
	List(ctx context.Context, in ListProjectsInput) (*ListProjectsOutput, error)
	// ListPublic returns the projects flagged include_in_api.
	ListPublic(ctx context.Context) ([]*model.Project, error)
	Update(ctx context.Context, name string, in UpdateProjectInput) (*model.Project, error)
	Delete(ctx context.Context, name string) error

	SetUserMembership(ctx context.Context, project, username string, in UserPermissions) (*model.UserMembership, error)
	RemoveUserMembership(ctx context.Context, project, username string) error
	SetNodeMembership(ctx context.Context, project, vsn string, in NodePermissions) (*model.NodeMembership, error)
	RemoveNodeMembership(ctx context.Context, project, vsn string) error
	ListUserMemberships(ctx context.Context, project string) ([]*model.UserMembership, error)
	ListNodeMemberships(ctx context.Context, project string) ([]*model.NodeMembership, error)
}

type projectService struct {
	r     repo.ProjectRepo
	mr    repo.MembershipRepo
	users repo.UserRepo
	nodes repo.NodeRepo
	forms FormInvalidator
	log   *zap.Logger
}

func NewProjectService(r repo.ProjectRepo, mr repo.MembershipRepo, users repo.UserRepo, nodes repo.NodeRepo, forms FormInvalidator, log *zap.Logger) ProjectService {
	if log == nil {
		log = zap.NewNop()
	}
	return &projectService{r: r, mr: mr, users: users, nodes: nodes, forms: forms, log: log}
}

func (s *projectService) invalidate(ctx context.Context) {
	if s.forms != nil {
		s.forms.Invalidate(ctx)
	}
}

type CreateProjectInput struct {
	Name         string `json:"name" binding:"required,max=255"`
	IncludeInAPI *bool  `json:"include_in_api"`
}

func (s *projectService) Create(ctx context.Context, in CreateProjectInput) (*model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fieldError("name", msgRequired)
	}
	p := &model.Project{Name: name, IncludeInAPI: true}
	if in.IncludeInAPI != nil {
		p.IncludeInAPI = *in.IncludeInAPI
	}
	if err := s.r.Create(ctx, p); err != nil {
		return nil, translate(err, "project "+name)
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *projectService) Get(ctx context.Context, name string) (*model.Project, error) {
	if name == "" {
		return nil, errors.New("project name is empty")
	}
	p, err := s.r.GetByName(ctx, name)
	if err != nil {
		return nil, translate(err, "project "+name)
	}
	return p, nil
}

type ListProjectsInput struct {
	Search       string `json:"search"`
	IncludeInAPI *bool  `json:"include_in_api"`
	Limit        int    `json:"limit"`
	Cursor       string `json:"cursor"`
}

type ListProjectsOutput struct {
	Items      []*model.Project `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
	HasMore    bool             `json:"has_more"`
}

func (s *projectService) List(ctx context.Context, in ListProjectsInput) (*ListProjectsOutput, error) {
	f := repo.ProjectFilter{Search: in.Search, IncludeInAPI: in.IncludeInAPI}
	if in.Cursor != "" {
		after, err := paging.DecodeKeyCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
		f.AfterName = after
	}
	if in.Limit > 0 {
		f.Limit = in.Limit + 1
	}

	projects, err := s.r.List(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &ListProjectsOutput{Items: projects}
	if in.Limit > 0 && len(projects) > in.Limit {
		out.HasMore = true
		out.Items = projects[:in.Limit]
		out.NextCursor = paging.EncodeKeyCursor(out.Items[len(out.Items)-1].Name)
	}
	return out, nil
}

func (s *projectService) ListPublic(ctx context.Context) ([]*model.Project, error) {
	include := true
	return s.r.List(ctx, repo.ProjectFilter{IncludeInAPI: &include})
}

type UpdateProjectInput struct {
	Name         *string `json:"name" binding:"omitempty,max=255"`
	IncludeInAPI *bool   `json:"include_in_api"`
}

func (s *projectService) Update(ctx context.Context, name string, in UpdateProjectInput) (*model.Project, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.Name != nil {
		newName := strings.TrimSpace(*in.Name)
		if newName == "" {
			return nil, fieldError("name", msgRequired)
		}
		fields["name"] = newName
	}
	setBool(fields, "include_in_api", in.IncludeInAPI)
	if err := s.r.Update(ctx, p, fields); err != nil {
		return nil, translate(err, "project "+name)
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *projectService) Delete(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("project name is empty")
	}
	// memberships cascade; allocation requests keep the row with existing_project NULL
	if err := s.r.Delete(ctx, name); err != nil {
		return translate(err, "project "+name)
	}
	s.invalidate(ctx)
	return nil
}

type UserPermissions struct {
	CanSchedule    bool `json:"can_schedule"`
	CanDevelop     bool `json:"can_develop"`
	CanAccessFiles bool `json:"can_access_files"`
	AllowView      bool `json:"allow_view"`
}

type NodePermissions struct {
	CanSchedule bool `json:"can_schedule"`
	CanDevelop  bool `json:"can_develop"`
}

func (s *projectService) SetUserMembership(ctx context.Context, project, username string, in UserPermissions) (*model.UserMembership, error) {
	p, u, err := s.projectAndUser(ctx, project, username)
	if err != nil {
		return nil, err
	}
	m := &model.UserMembership{
		ProjectID:      p.ID,
		UserID:         u.ID,
		CanSchedule:    in.CanSchedule,
		CanDevelop:     in.CanDevelop,
		CanAccessFiles: in.CanAccessFiles,
		AllowView:      in.AllowView,
	}
	if err := s.mr.UpsertUser(ctx, m); err != nil {
		return nil, translate(err, "membership")
	}
	m.Project, m.User = p, u
	s.log.Sugar().Infow("user membership set", "project", p.Name, "username", u.Username)
	return m, nil
}

func (s *projectService) RemoveUserMembership(ctx context.Context, project, username string) error {
	p, u, err := s.projectAndUser(ctx, project, username)
	if err != nil {
		return err
	}
	return translate(s.mr.RemoveUser(ctx, p.ID, u.ID), "membership")
}

func (s *projectService) SetNodeMembership(ctx context.Context, project, vsn string, in NodePermissions) (*model.NodeMembership, error) {
	p, n, err := s.projectAndNode(ctx, project, vsn)
	if err != nil {
		return nil, err
	}
	m := &model.NodeMembership{
		ProjectID:   p.ID,
		NodeID:      n.ID,
		CanSchedule: in.CanSchedule,
		CanDevelop:  in.CanDevelop,
	}
	if err := s.mr.UpsertNode(ctx, m); err != nil {
		return nil, translate(err, "membership")
	}
	m.Project, m.Node = p, n
	s.log.Sugar().Infow("node membership set", "project", p.Name, "vsn", n.VSN)
	return m, nil
}

func (s *projectService) RemoveNodeMembership(ctx context.Context, project, vsn string) error {
	p, n, err := s.projectAndNode(ctx, project, vsn)
	if err != nil {
		return err
	}
	return translate(s.mr.RemoveNode(ctx, p.ID, n.ID), "membership")
}

func (s *projectService) ListUserMemberships(ctx context.Context, project string) ([]*model.UserMembership, error) {
	p, err := s.Get(ctx, project)
	if err != nil {
		return nil, err
	}
	ms, err := s.mr.ListProjectUsers(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		m.Project = p
	}
	return ms, nil
}

func (s *projectService) ListNodeMemberships(ctx context.Context, project string) ([]*model.NodeMembership, error) {
	p, err := s.Get(ctx, project)
	if err != nil {
		return nil, err
	}
	ms, err := s.mr.ListProjectNodes(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		m.Project = p
	}
	return ms, nil
}

func (s *projectService) projectAndUser(ctx context.Context, project, username string) (*model.Project, *model.User, error) {
	p, err := s.Get(ctx, project)
	if err != nil {
		return nil, nil, err
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, translate(err, "user "+username)
	}
	return p, u, nil
}

func (s *projectService) projectAndNode(ctx context.Context, project, vsn string) (*model.Project, *model.Node, error) {
	p, err := s.Get(ctx, project)
	if err != nil {
		return nil, nil, err
	}
	n, err := s.nodes.GetByVSN(ctx, vsn)
	if err != nil {
		return nil, nil, translate(err, "node "+vsn)
	}
	return p, n, nil
}
