package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/pkg/paging"
	"github.com/waggle-sensor/facilities/internal/telemetry"
	"go.uber.org/zap"
)

type AllocationRequestService interface {
	Submit(ctx context.Context, in SubmitAllocationRequestInput) (*model.AllocationRequest, error)
	Get(ctx context.Context, username string) (*model.AllocationRequest, error)
	List(ctx context.Context, in ListAllocationRequestsInput) (*ListAllocationRequestsOutput, error)
	Approve(ctx context.Context, username string) (*model.AllocationRequest, error)
	Delete(ctx context.Context, username string) error
}

type allocationRequestService struct {
	r        repo.AllocationRequestRepo
	projects repo.ProjectRepo
	fields   repo.ScienceFieldRepo
	funding  repo.FundingSourceRepo
	cfg      *config.Config
	events   eventSink
	validate *validator.Validate
	log      *zap.Logger
}

func NewAllocationRequestService(
	r repo.AllocationRequestRepo,
	projects repo.ProjectRepo,
	fields repo.ScienceFieldRepo,
	funding repo.FundingSourceRepo,
	cfg *config.Config,
	pub EventPublisher,
	log *zap.Logger,
) AllocationRequestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &allocationRequestService{
		r:        r,
		projects: projects,
		fields:   fields,
		funding:  funding,
		cfg:      cfg,
		events:   newEventSink(pub, cfg.RabbitMQ.ExchangeName.Facilities, log),
		validate: validator.New(),
		log:      log,
	}
}

// SubmitAllocationRequestInput is both the submission payload and the source of the form JSON-Schema.
type SubmitAllocationRequestInput struct {
	Username           string                   `json:"username" binding:"required,max=255" help:"Your portal username"`
	ProjectRequestType model.ProjectRequestType `json:"project_request_type" label:"Project request type"`
	ExistingProject    *uint                    `json:"existing_project,omitempty" relation:"Project" label:"Existing project" help:"Required when renewing or joining a project"`

	PIName           *string `json:"pi_name,omitempty" binding:"omitempty,max=255" label:"PI name"`
	PIEmail          *string `json:"pi_email,omitempty" binding:"omitempty,max=254" label:"PI email"`
	PIInstitution    *string `json:"pi_institution,omitempty" binding:"omitempty,max=255" label:"PI institution"`
	ProjectTitle     *string `json:"project_title,omitempty" binding:"omitempty,max=255"`
	ProjectWebsite   *string `json:"project_website,omitempty" binding:"omitempty,max=200"`
	ProjectShortName *string `json:"project_short_name,omitempty" binding:"omitempty,max=100" help:"A short name used to identify the project"`

	ScienceFields     []string              `json:"science_fields" relation:"ScienceField"`
	RelatedToProposal *model.ProposalChoice `json:"related_to_proposal,omitempty" label:"Is this related to a funded proposal?"`
	Justification     *string               `json:"justification,omitempty"`
	FundingSources    []uint                `json:"funding_sources" relation:"FundingSource"`

	AccessRunningApps bool    `json:"access_running_apps" label:"Access to running apps"`
	AccessShell       bool    `json:"access_shell" label:"Shell access"`
	AccessDownload    bool    `json:"access_download" label:"Download access"`
	InterestInHPC     bool    `json:"interest_in_hpc" label:"Interest in HPC"`
	Comments          *string `json:"comments,omitempty"`
}

type allocationRequestEvent struct {
	Username           string `json:"username"`
	ProjectRequestType string `json:"project_request_type"`
	ExistingProject    *uint  `json:"existing_project,omitempty"`
	IsApproved         bool   `json:"is_approved"`
}

func newAllocationRequestEvent(ar *model.AllocationRequest) allocationRequestEvent {
	return allocationRequestEvent{
		Username:           ar.Username,
		ProjectRequestType: string(ar.ProjectRequestType),
		ExistingProject:    ar.ExistingProjectID,
		IsApproved:         ar.IsApproved,
	}
}

func (s *allocationRequestService) Submit(ctx context.Context, in SubmitAllocationRequestInput) (*model.AllocationRequest, error) {
	if in.ProjectRequestType == "" {
		in.ProjectRequestType = model.ProjectRequestNew
	}

	ar, err := s.build(ctx, in)
	if err != nil {
		telemetry.RecordAllocationRequest(ctx, string(in.ProjectRequestType), outcomeOf(err))
		return nil, err
	}

	if err := s.r.Create(ctx, ar); err != nil {
		err = translate(err, "allocation request for "+ar.Username)
		telemetry.RecordAllocationRequest(ctx, string(ar.ProjectRequestType), outcomeOf(err))
		return nil, err
	}

	telemetry.RecordAllocationRequest(ctx, string(ar.ProjectRequestType), "accepted")
	s.log.Sugar().Infow("allocation request submitted", "username", ar.Username, "type", ar.ProjectRequestType)
	s.events.emit(ctx, s.cfg.RabbitMQ.RoutingKey.AllocationRequestCreated, newAllocationRequestEvent(ar))
	return ar, nil
}

// build validates in and resolves its references. All field errors are collected before returning.
func (s *allocationRequestService) build(ctx context.Context, in SubmitAllocationRequestInput) (*model.AllocationRequest, error) {
	verr := &ValidationError{}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		verr.Add("username", msgRequired)
	}
	if !in.ProjectRequestType.Valid() {
		verr.Add("project_request_type", invalidChoice(string(in.ProjectRequestType)))
	}
	if in.RelatedToProposal != nil && !in.RelatedToProposal.Valid() {
		verr.Add("related_to_proposal", invalidChoice(string(*in.RelatedToProposal)))
	}
	if v := trimmed(in.PIEmail); v != "" && s.validate.Var(v, "email") != nil {
		verr.Add("pi_email", "Enter a valid email address.")
	}
	if v := trimmed(in.ProjectWebsite); v != "" && s.validate.Var(v, "url") != nil {
		verr.Add("project_website", "Enter a valid URL.")
	}

	if in.ProjectRequestType == model.ProjectRequestNew {
		for _, f := range missingForNew(in) {
			verr.Add(f, msgRequiredForNew)
		}
	}

	ar := &model.AllocationRequest{
		ProjectRequestType: in.ProjectRequestType,
		Username:           username,
		PIName:             blankToNil(in.PIName),
		PIEmail:            blankToNil(in.PIEmail),
		PIInstitution:      blankToNil(in.PIInstitution),
		ProjectTitle:       blankToNil(in.ProjectTitle),
		ProjectWebsite:     blankToNil(in.ProjectWebsite),
		ProjectShortName:   blankToNil(in.ProjectShortName),
		RelatedToProposal:  in.RelatedToProposal,
		Justification:      blankToNil(in.Justification),
		AccessRunningApps:  in.AccessRunningApps,
		AccessShell:        in.AccessShell,
		AccessDownload:     in.AccessDownload,
		InterestInHPC:      in.InterestInHPC,
		Comments:           blankToNil(in.Comments),
	}

	if in.ProjectRequestType.NeedsExistingProject() && in.ExistingProject == nil {
		verr.Add("existing_project", msgRequiredExisting)
	}
	if in.ExistingProject != nil {
		p, err := s.projects.GetByID(ctx, *in.ExistingProject)
		switch {
		case err == nil:
			ar.ExistingProjectID = &p.ID
		case errors.Is(translate(err, "project"), ErrNotFound):
			verr.Add("existing_project", invalidPK(*in.ExistingProject))
		default:
			return nil, err
		}
	}

	if len(in.ScienceFields) > 0 {
		found, err := s.fields.GetByNames(ctx, in.ScienceFields)
		if err != nil {
			return nil, err
		}
		known := make(map[string]bool, len(found))
		for _, f := range found {
			known[f.Name] = true
		}
		for _, name := range in.ScienceFields {
			if !known[name] {
				verr.Add("science_fields", fmt.Sprintf("Object with name=%s does not exist.", name))
			}
		}
		ar.ScienceFields = found
	}

	if len(in.FundingSources) > 0 {
		found, err := s.funding.GetByIDs(ctx, in.FundingSources)
		if err != nil {
			return nil, err
		}
		known := make(map[uint]bool, len(found))
		for _, f := range found {
			known[f.ID] = true
		}
		for _, id := range in.FundingSources {
			if !known[id] {
				verr.Add("funding_sources", invalidPK(id))
			}
		}
		ar.FundingSources = found
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return ar, nil
}

// missingForNew lists the new-project fields that are absent, in form order.
func missingForNew(in SubmitAllocationRequestInput) []string {
	var missing []string
	check := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	check("pi_name", trimmed(in.PIName) != "")
	check("pi_email", trimmed(in.PIEmail) != "")
	check("pi_institution", trimmed(in.PIInstitution) != "")
	check("project_title", trimmed(in.ProjectTitle) != "")
	check("project_short_name", trimmed(in.ProjectShortName) != "")
	check("science_fields", len(in.ScienceFields) > 0)
	check("related_to_proposal", in.RelatedToProposal != nil && *in.RelatedToProposal != "")
	check("funding_sources", len(in.FundingSources) > 0)
	return missing
}

func (s *allocationRequestService) Get(ctx context.Context, username string) (*model.AllocationRequest, error) {
	if username == "" {
		return nil, errors.New("username is empty")
	}
	ar, err := s.r.GetByUsername(ctx, username)
	if err != nil {
		return nil, translate(err, "allocation request for "+username)
	}
	return ar, nil
}

type ListAllocationRequestsInput struct {
	Search      string `json:"search"`
	IsApproved  *bool  `json:"is_approved"`
	RequestType string `json:"project_request_type"`
	Limit       int    `json:"limit"`
	Cursor      string `json:"cursor"`
}

type ListAllocationRequestsOutput struct {
	Items      []*model.AllocationRequest `json:"items"`
	NextCursor string                     `json:"next_cursor,omitempty"`
	HasMore    bool                       `json:"has_more"`
}

func (s *allocationRequestService) List(ctx context.Context, in ListAllocationRequestsInput) (*ListAllocationRequestsOutput, error) {
	if in.RequestType != "" && !model.ProjectRequestType(in.RequestType).Valid() {
		return nil, fieldError("project_request_type", invalidChoice(in.RequestType))
	}
	f := repo.AllocationRequestFilter{
		Search:      in.Search,
		IsApproved:  in.IsApproved,
		RequestType: in.RequestType,
	}
	// Parse cursor (createdAt, id); an empty cursor starts from the newest
	if in.Cursor != "" {
		t, id, err := paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
		f.AfterCreatedAt, f.AfterID = t, id
	}
	if in.Limit > 0 {
		f.Limit = in.Limit + 1
	}

	items, err := s.r.List(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &ListAllocationRequestsOutput{Items: items}
	if in.Limit > 0 && len(items) > in.Limit {
		out.HasMore = true
		out.Items = items[:in.Limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.CreatedAt, last.ID)
	}
	return out, nil
}

func (s *allocationRequestService) Approve(ctx context.Context, username string) (*model.AllocationRequest, error) {
	if username == "" {
		return nil, errors.New("username is empty")
	}
	ar, err := s.r.SetApproved(ctx, username, true)
	if err != nil {
		return nil, translate(err, "allocation request for "+username)
	}
	telemetry.RecordAllocationApproval(ctx, string(ar.ProjectRequestType))
	s.log.Sugar().Infow("allocation request approved", "username", username)
	s.events.emit(ctx, s.cfg.RabbitMQ.RoutingKey.AllocationRequestApproved, newAllocationRequestEvent(ar))
	return ar, nil
}

func (s *allocationRequestService) Delete(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("username is empty")
	}
	return translate(s.r.Delete(ctx, username), "allocation request for "+username)
}

func outcomeOf(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

func invalidChoice(v string) string {
	return fmt.Sprintf("%q is not a valid choice.", v)
}

func invalidPK(id uint) string {
	return fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
