package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
)

// CatalogService manages the lookup lists offered on the allocation-request form.
type CatalogService interface {
	ListScienceFields(ctx context.Context) ([]*model.ScienceField, error)
	CreateScienceField(ctx context.Context, name string) (*model.ScienceField, error)
	DeleteScienceField(ctx context.Context, id uint) error
	// SeedScienceFields creates the names that do not exist yet.
	SeedScienceFields(ctx context.Context, names []string) (int64, error)

	ListFundingSources(ctx context.Context, search string) ([]*model.FundingSource, error)
	CreateFundingSource(ctx context.Context, in CreateFundingSourceInput) (*model.FundingSource, error)
	DeleteFundingSource(ctx context.Context, id uint) error
}

type catalogService struct {
	fields  repo.ScienceFieldRepo
	funding repo.FundingSourceRepo
	forms   FormInvalidator
}

func NewCatalogService(fields repo.ScienceFieldRepo, funding repo.FundingSourceRepo, forms FormInvalidator) CatalogService {
	return &catalogService{fields: fields, funding: funding, forms: forms}
}

func (s *catalogService) invalidate(ctx context.Context) {
	if s.forms != nil {
		s.forms.Invalidate(ctx)
	}
}

func (s *catalogService) ListScienceFields(ctx context.Context) ([]*model.ScienceField, error) {
	return s.fields.List(ctx)
}

func (s *catalogService) CreateScienceField(ctx context.Context, name string) (*model.ScienceField, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fieldError("name", msgRequired)
	}
	if len(name) > 50 {
		return nil, fieldError("name", "Ensure this field has no more than 50 characters.")
	}
	f := &model.ScienceField{Name: name}
	if err := s.fields.Create(ctx, f); err != nil {
		return nil, translate(err, "science field "+name)
	}
	s.invalidate(ctx)
	return f, nil
}

func (s *catalogService) DeleteScienceField(ctx context.Context, id uint) error {
	if err := s.fields.Delete(ctx, id); err != nil {
		return translate(err, fmt.Sprintf("science field %d", id))
	}
	s.invalidate(ctx)
	return nil
}

func (s *catalogService) SeedScienceFields(ctx context.Context, names []string) (int64, error) {
	inserted, err := s.fields.EnsureNames(ctx, cleanNames(names))
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.invalidate(ctx)
	}
	return inserted, nil
}

func (s *catalogService) ListFundingSources(ctx context.Context, search string) ([]*model.FundingSource, error) {
	return s.funding.List(ctx, search)
}

type CreateFundingSourceInput struct {
	Source      string `json:"source" binding:"required,max=255"`
	GrantNumber string `json:"grant_number" binding:"required,max=255"`
}

func (s *catalogService) CreateFundingSource(ctx context.Context, in CreateFundingSourceInput) (*model.FundingSource, error) {
	verr := &ValidationError{}
	source := strings.TrimSpace(in.Source)
	grant := strings.TrimSpace(in.GrantNumber)
	if source == "" {
		verr.Add("source", msgRequired)
	}
	if grant == "" {
		verr.Add("grant_number", msgRequired)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	f := &model.FundingSource{Source: source, GrantNumber: grant}
	if err := s.funding.Create(ctx, f); err != nil {
		return nil, translate(err, "funding source")
	}
	s.invalidate(ctx)
	return f, nil
}

func (s *catalogService) DeleteFundingSource(ctx context.Context, id uint) error {
	if err := s.funding.Delete(ctx, id); err != nil {
		return translate(err, fmt.Sprintf("funding source %d", id))
	}
	s.invalidate(ctx)
	return nil
}
