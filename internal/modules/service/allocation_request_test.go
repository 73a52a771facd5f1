package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/pkg/paging"
	"gorm.io/gorm"
)

// MockAllocationRequestRepo is a mock implementation of AllocationRequestRepo
type MockAllocationRequestRepo struct {
	mock.Mock
}

func (m *MockAllocationRequestRepo) Create(ctx context.Context, ar *model.AllocationRequest) error {
	args := m.Called(ctx, ar)
	return args.Error(0)
}

func (m *MockAllocationRequestRepo) GetByUsername(ctx context.Context, username string) (*model.AllocationRequest, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AllocationRequest), args.Error(1)
}

func (m *MockAllocationRequestRepo) List(ctx context.Context, f repo.AllocationRequestFilter) ([]*model.AllocationRequest, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AllocationRequest), args.Error(1)
}

func (m *MockAllocationRequestRepo) SetApproved(ctx context.Context, username string, approved bool) (*model.AllocationRequest, error) {
	args := m.Called(ctx, username, approved)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AllocationRequest), args.Error(1)
}

func (m *MockAllocationRequestRepo) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

type allocationMocks struct {
	r        *MockAllocationRequestRepo
	projects *MockProjectRepo
	fields   *MockScienceFieldRepo
	funding  *MockFundingSourceRepo
	pub      *MockEventPublisher
}

func newAllocationMocks() *allocationMocks {
	return &allocationMocks{
		r:        &MockAllocationRequestRepo{},
		projects: &MockProjectRepo{},
		fields:   &MockScienceFieldRepo{},
		funding:  &MockFundingSourceRepo{},
		pub:      &MockEventPublisher{},
	}
}

func (m *allocationMocks) service() AllocationRequestService {
	return NewAllocationRequestService(m.r, m.projects, m.fields, m.funding, testConfig(), m.pub, nil)
}

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }

func validNewRequest() SubmitAllocationRequestInput {
	yes := model.ProposalYes
	return SubmitAllocationRequestInput{
		Username:          "alice",
		PIName:            strPtr("Dr. Smith"),
		PIEmail:           strPtr("smith@example.org"),
		PIInstitution:     strPtr("Argonne"),
		ProjectTitle:      strPtr("Urban Heat"),
		ProjectShortName:  strPtr("heat"),
		ProjectWebsite:    strPtr("https://example.org/heat"),
		ScienceFields:     []string{"Ecology"},
		RelatedToProposal: &yes,
		FundingSources:    []uint{1},
		AccessShell:       true,
	}
}

func TestAllocationRequestService_Submit_New(t *testing.T) {
	ctx := context.Background()
	m := newAllocationMocks()
	m.fields.On("GetByNames", ctx, []string{"Ecology"}).Return([]model.ScienceField{{ID: 2, Name: "Ecology"}}, nil)
	m.funding.On("GetByIDs", ctx, []uint{1}).Return([]model.FundingSource{{ID: 1, Source: "NSF", GrantNumber: "1"}}, nil)
	m.r.On("Create", ctx, mock.MatchedBy(func(ar *model.AllocationRequest) bool {
		return ar.Username == "alice" &&
			ar.ProjectRequestType == model.ProjectRequestNew &&
			len(ar.ScienceFields) == 1 && len(ar.FundingSources) == 1 &&
			ar.AccessShell && !ar.IsApproved
	})).Return(nil)
	m.pub.On("PublishJSON", ctx, "facilities", "allocation_request.created", mock.AnythingOfType("Event")).Return(nil)

	ar, err := m.service().Submit(ctx, validNewRequest())
	require.NoError(t, err)
	assert.Equal(t, "heat", *ar.ProjectShortName)
	m.r.AssertExpectations(t)
	m.pub.AssertExpectations(t)
}

func TestAllocationRequestService_Submit_NewMissingFields(t *testing.T) {
	ctx := context.Background()
	m := newAllocationMocks()

	in := SubmitAllocationRequestInput{Username: "alice", ProjectRequestType: model.ProjectRequestNew, PIName: strPtr("  ")}
	_, err := m.service().Submit(ctx, in)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	for _, f := range []string{
		"pi_name", "pi_email", "pi_institution", "project_title",
		"project_short_name", "science_fields", "related_to_proposal", "funding_sources",
	} {
		assert.Equal(t, []string{msgRequiredForNew}, verr.Fields[f], f)
	}
	assert.NotContains(t, verr.Fields, "existing_project")
	m.r.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocationRequestService_Submit_DefaultsToNew(t *testing.T) {
	ctx := context.Background()
	m := newAllocationMocks()

	_, err := m.service().Submit(ctx, SubmitAllocationRequestInput{Username: "alice"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "pi_name")
}

func TestAllocationRequestService_Submit_ExistingProject(t *testing.T) {
	ctx := context.Background()

	t.Run("renew requires a project", func(t *testing.T) {
		m := newAllocationMocks()
		_, err := m.service().Submit(ctx, SubmitAllocationRequestInput{Username: "bob", ProjectRequestType: model.ProjectRequestRenew})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{msgRequiredExisting}, verr.Fields["existing_project"])
		assert.NotContains(t, verr.Fields, "pi_name")
	})

	t.Run("unknown project", func(t *testing.T) {
		m := newAllocationMocks()
		m.projects.On("GetByID", ctx, uint(42)).Return(nil, gorm.ErrRecordNotFound)
		_, err := m.service().Submit(ctx, SubmitAllocationRequestInput{
			Username:           "bob",
			ProjectRequestType: model.ProjectRequestAdd,
			ExistingProject:    uintPtr(42),
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{`Invalid pk "42" - object does not exist.`}, verr.Fields["existing_project"])
	})

	t.Run("add to a project", func(t *testing.T) {
		m := newAllocationMocks()
		m.projects.On("GetByID", ctx, uint(3)).Return(&model.Project{ID: 3, Name: "Sage"}, nil)
		m.r.On("Create", ctx, mock.MatchedBy(func(ar *model.AllocationRequest) bool {
			return ar.ExistingProjectID != nil && *ar.ExistingProjectID == 3
		})).Return(nil)
		m.pub.On("PublishJSON", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		ar, err := m.service().Submit(ctx, SubmitAllocationRequestInput{
			Username:           "bob",
			ProjectRequestType: model.ProjectRequestAdd,
			ExistingProject:    uintPtr(3),
		})
		require.NoError(t, err)
		assert.Equal(t, model.ProjectRequestAdd, ar.ProjectRequestType)
	})
}

func TestAllocationRequestService_Submit_InvalidValues(t *testing.T) {
	ctx := context.Background()
	bogus := model.ProposalChoice("Maybe")

	tests := []struct {
		name   string
		modify func(*SubmitAllocationRequestInput)
		field  string
		msg    string
	}{
		{
			name:   "request type",
			modify: func(in *SubmitAllocationRequestInput) { in.ProjectRequestType = "extend" },
			field:  "project_request_type",
			msg:    `"extend" is not a valid choice.`,
		},
		{
			name:   "proposal choice",
			modify: func(in *SubmitAllocationRequestInput) { in.RelatedToProposal = &bogus },
			field:  "related_to_proposal",
			msg:    `"Maybe" is not a valid choice.`,
		},
		{
			name:   "email",
			modify: func(in *SubmitAllocationRequestInput) { in.PIEmail = strPtr("not-an-email") },
			field:  "pi_email",
			msg:    "Enter a valid email address.",
		},
		{
			name:   "website",
			modify: func(in *SubmitAllocationRequestInput) { in.ProjectWebsite = strPtr("example") },
			field:  "project_website",
			msg:    "Enter a valid URL.",
		},
		{
			name:   "unknown science field",
			modify: func(in *SubmitAllocationRequestInput) { in.ScienceFields = []string{"Ecology", "Alchemy"} },
			field:  "science_fields",
			msg:    "Object with name=Alchemy does not exist.",
		},
		{
			name:   "unknown funding source",
			modify: func(in *SubmitAllocationRequestInput) { in.FundingSources = []uint{1, 9} },
			field:  "funding_sources",
			msg:    `Invalid pk "9" - object does not exist.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newAllocationMocks()
			m.fields.On("GetByNames", ctx, mock.Anything).Return([]model.ScienceField{{ID: 2, Name: "Ecology"}}, nil)
			m.funding.On("GetByIDs", ctx, mock.Anything).Return([]model.FundingSource{{ID: 1}}, nil)

			in := validNewRequest()
			tt.modify(&in)
			_, err := m.service().Submit(ctx, in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{tt.msg}, verr.Fields[tt.field])
			m.r.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAllocationRequestService_Submit_Duplicate(t *testing.T) {
	ctx := context.Background()
	m := newAllocationMocks()
	m.fields.On("GetByNames", ctx, mock.Anything).Return([]model.ScienceField{{ID: 2, Name: "Ecology"}}, nil)
	m.funding.On("GetByIDs", ctx, mock.Anything).Return([]model.FundingSource{{ID: 1}}, nil)
	m.r.On("Create", ctx, mock.Anything).Return(gorm.ErrDuplicatedKey)

	_, err := m.service().Submit(ctx, validNewRequest())
	assert.ErrorIs(t, err, ErrConflict)
	m.pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAllocationRequestService_List(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	items := []*model.AllocationRequest{
		{ID: 3, Username: "c", CreatedAt: now},
		{ID: 2, Username: "b", CreatedAt: now.Add(-time.Minute)},
		{ID: 1, Username: "a", CreatedAt: now.Add(-2 * time.Minute)},
	}

	m := newAllocationMocks()
	m.r.On("List", ctx, repo.AllocationRequestFilter{RequestType: "new", Limit: 3}).Return(items, nil)
	svc := m.service()

	out, err := svc.List(ctx, ListAllocationRequestsInput{RequestType: "new", Limit: 2})
	require.NoError(t, err)
	assert.True(t, out.HasMore)
	assert.Len(t, out.Items, 2)

	at, id, err := paging.DecodeCursor(out.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, uint(2), id)
	assert.True(t, at.Equal(items[1].CreatedAt))

	m.r.On("List", ctx, repo.AllocationRequestFilter{AfterCreatedAt: at, AfterID: 2, Limit: 3}).Return(items[2:], nil)
	out, err = svc.List(ctx, ListAllocationRequestsInput{Limit: 2, Cursor: out.NextCursor})
	require.NoError(t, err)
	assert.False(t, out.HasMore)
	assert.Len(t, out.Items, 1)

	_, err = svc.List(ctx, ListAllocationRequestsInput{RequestType: "extend"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestAllocationRequestService_Approve(t *testing.T) {
	ctx := context.Background()
	m := newAllocationMocks()
	m.r.On("SetApproved", ctx, "alice", true).Return(&model.AllocationRequest{
		Username:           "alice",
		ProjectRequestType: model.ProjectRequestNew,
		IsApproved:         true,
	}, nil)
	m.r.On("SetApproved", ctx, "ghost", true).Return(nil, gorm.ErrRecordNotFound)
	m.pub.On("PublishJSON", ctx, "facilities", "allocation_request.approved", mock.MatchedBy(func(ev Event) bool {
		data, ok := ev.Data.(allocationRequestEvent)
		return ok && data.Username == "alice" && data.IsApproved
	})).Return(nil)
	svc := m.service()

	ar, err := svc.Approve(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ar.IsApproved)

	_, err = svc.Approve(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	m.pub.AssertNumberOfCalls(t, "PublishJSON", 1)
}

func TestAllocationRequestService_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	m := newAllocationMocks()
	m.r.On("GetByUsername", ctx, "alice").Return(&model.AllocationRequest{Username: "alice"}, nil)
	m.r.On("Delete", ctx, "ghost").Return(gorm.ErrRecordNotFound)
	svc := m.service()

	ar, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", ar.Username)

	assert.ErrorIs(t, svc.Delete(ctx, "ghost"), ErrNotFound)
	assert.Error(t, svc.Delete(ctx, ""))
}
