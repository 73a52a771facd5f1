package service

import (
	"context"
	"encoding/json"

	"github.com/bytedance/sonic"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
	"github.com/waggle-sensor/facilities/internal/pkg/formschema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	formDataCacheKey   = "form:allocation_request:data"
	formSchemaCacheKey = "form:allocation_request:schema"
)

// JSONCache is the subset of the redis document cache the form service needs.
type JSONCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, keys ...string) error
}

type AllocationFormService interface {
	FormData(ctx context.Context) (*FormData, error)
	// Schema returns the JSON-Schema of the submission payload, encoded.
	Schema(ctx context.Context) (json.RawMessage, error)
	Invalidate(ctx context.Context)
}

// FormProject is a serialized project plus the id submitted as existing_project.
type FormProject struct {
	ID uint `json:"id"`
	serializer.Project
}

type FormData struct {
	ScienceFields       []string      `json:"science_fields"`
	ProjectRequestTypes []string      `json:"project_request_types"`
	FundingSources      []string      `json:"funding_sources"`
	AccessPermissions   []string      `json:"access_permissions"`
	ProposalChoices     []string      `json:"proposal_choices"`
	Projects            []FormProject `json:"projects"`
}

type allocationFormService struct {
	fields   repo.ScienceFieldRepo
	funding  repo.FundingSourceRepo
	projects repo.ProjectRepo
	cache    JSONCache
	log      *zap.Logger
}

// NewAllocationFormService builds the form service. cache may be nil, which disables caching.
func NewAllocationFormService(fields repo.ScienceFieldRepo, funding repo.FundingSourceRepo, projects repo.ProjectRepo, cache JSONCache, log *zap.Logger) AllocationFormService {
	if log == nil {
		log = zap.NewNop()
	}
	return &allocationFormService{fields: fields, funding: funding, projects: projects, cache: cache, log: log}
}

func (s *allocationFormService) FormData(ctx context.Context) (*FormData, error) {
	cached := &FormData{}
	if s.fromCache(ctx, formDataCacheKey, cached) {
		return cached, nil
	}

	var (
		fields  []*model.ScienceField
		funding []*model.FundingSource
		public  []*model.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fields, err = s.fields.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		funding, err = s.funding.List(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		include := true
		public, err = s.projects.List(gctx, repo.ProjectFilter{IncludeInAPI: &include})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &FormData{
		ScienceFields:       make([]string, 0, len(fields)),
		ProjectRequestTypes: formschema.Values(model.ProjectRequestType("")),
		FundingSources:      make([]string, 0, len(funding)),
		AccessPermissions:   append([]string{}, model.AccessPermissionFields...),
		ProposalChoices:     formschema.Values(model.ProposalChoice("")),
		Projects:            make([]FormProject, 0, len(public)),
	}
	for _, f := range fields {
		out.ScienceFields = append(out.ScienceFields, f.Name)
	}
	for _, f := range funding {
		out.FundingSources = append(out.FundingSources, f.Display())
	}
	for _, p := range public {
		out.Projects = append(out.Projects, FormProject{ID: p.ID, Project: serializer.NewProject(p)})
	}

	s.toCache(ctx, formDataCacheKey, out)
	return out, nil
}

func (s *allocationFormService) Schema(ctx context.Context) (json.RawMessage, error) {
	var cached json.RawMessage
	if s.fromCache(ctx, formSchemaCacheKey, &cached) && len(cached) > 0 {
		return cached, nil
	}

	fields, err := s.fields.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}

	doc, err := formschema.New().
		WithRelationEnum("science_fields", names).
		Generate(SubmitAllocationRequestInput{})
	if err != nil {
		return nil, err
	}
	b, err := sonic.Marshal(doc)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, formSchemaCacheKey, json.RawMessage(b))
	return b, nil
}

func (s *allocationFormService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, formDataCacheKey, formSchemaCacheKey); err != nil {
		s.log.Sugar().Warnw("invalidate form cache", "error", err)
	}
}

// cache failures only cost a rebuild, so they are logged and ignored

func (s *allocationFormService) fromCache(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.log.Sugar().Warnw("read form cache", "key", key, "error", err)
		return false
	}
	return ok
}

func (s *allocationFormService) toCache(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Sugar().Warnw("write form cache", "key", key, "error", err)
	}
}
