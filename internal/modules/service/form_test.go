package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waggle-sensor/facilities/internal/infra/cache"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/modules/serializer"
)

func newTestCache(t *testing.T) (*cache.JSONCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewJSONCache(rdb, time.Minute), mr
}

type formMocks struct {
	fields   *MockScienceFieldRepo
	funding  *MockFundingSourceRepo
	projects *MockProjectRepo
}

func newFormMocks() *formMocks {
	include := true
	m := &formMocks{
		fields:   &MockScienceFieldRepo{},
		funding:  &MockFundingSourceRepo{},
		projects: &MockProjectRepo{},
	}
	m.fields.On("List", mock.Anything).Return([]*model.ScienceField{{ID: 1, Name: "Ecology"}, {ID: 2, Name: "Geology"}}, nil)
	m.funding.On("List", mock.Anything, "").Return([]*model.FundingSource{{ID: 1, Source: "NSF", GrantNumber: "OAC-1935984"}}, nil)
	m.projects.On("List", mock.Anything, repo.ProjectFilter{IncludeInAPI: &include}).Return([]*model.Project{sageWithMembers()}, nil)
	return m
}

func TestAllocationFormService_FormData(t *testing.T) {
	ctx := context.Background()
	m := newFormMocks()
	svc := NewAllocationFormService(m.fields, m.funding, m.projects, nil, nil)

	data, err := svc.FormData(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ecology", "Geology"}, data.ScienceFields)
	assert.Equal(t, []string{"new", "renew", "add"}, data.ProjectRequestTypes)
	assert.Equal(t, []string{"NSF (OAC-1935984)"}, data.FundingSources)
	assert.Equal(t, []string{"access_running_apps", "access_shell", "access_download"}, data.AccessPermissions)
	assert.Equal(t, []string{"Yes", "No"}, data.ProposalChoices)
	require.Len(t, data.Projects, 1)
	assert.Equal(t, FormProject{
		ID: 4,
		Project: serializer.Project{
			Name:          "Sage",
			Users:         []string{"alice"},
			Nodes:         []string{"W001"},
			NumberOfUsers: 1,
			NumberOfNodes: 1,
		},
	}, data.Projects[0])
}

func TestAllocationFormService_FormDataProjectJSON(t *testing.T) {
	m := newFormMocks()
	svc := NewAllocationFormService(m.fields, m.funding, m.projects, nil, nil)

	data, err := svc.FormData(context.Background())
	require.NoError(t, err)

	b, err := json.Marshal(data.Projects)
	require.NoError(t, err)
	assert.JSONEq(t, `[{
		"id": 4,
		"name": "Sage",
		"users": ["alice"],
		"nodes": ["W001"],
		"number_of_users": 1,
		"number_of_nodes": 1
	}]`, string(b))
}

func sageWithMembers() *model.Project {
	return &model.Project{
		ID:              4,
		Name:            "Sage",
		UserMemberships: []model.UserMembership{{User: &model.User{Username: "alice"}}},
		NodeMemberships: []model.NodeMembership{{Node: &model.Node{VSN: "W001"}}},
	}
}

func TestAllocationFormService_FormDataCached(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	m := newFormMocks()
	svc := NewAllocationFormService(m.fields, m.funding, m.projects, c, nil)

	first, err := svc.FormData(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("facilities:"+formDataCacheKey))

	second, err := svc.FormData(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	m.fields.AssertNumberOfCalls(t, "List", 1)

	svc.Invalidate(ctx)
	assert.False(t, mr.Exists("facilities:"+formDataCacheKey))

	_, err = svc.FormData(ctx)
	require.NoError(t, err)
	m.fields.AssertNumberOfCalls(t, "List", 2)
}

func TestAllocationFormService_FormDataError(t *testing.T) {
	ctx := context.Background()
	fields := &MockScienceFieldRepo{}
	fields.On("List", mock.Anything).Return(nil, assert.AnError)
	m := newFormMocks()
	svc := NewAllocationFormService(fields, m.funding, m.projects, nil, nil)

	_, err := svc.FormData(ctx)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAllocationFormService_Schema(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	m := newFormMocks()
	svc := NewAllocationFormService(m.fields, m.funding, m.projects, c, nil)

	raw, err := svc.Schema(ctx)
	require.NoError(t, err)

	var doc struct {
		Type       string                    `json:"type"`
		Required   []string                  `json:"required"`
		Properties map[string]map[string]any `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, "object", doc.Type)
	assert.Equal(t, []string{"username"}, doc.Required)

	science := doc.Properties["science_fields"]
	assert.Equal(t, "array", science["type"])
	assert.Equal(t, map[string]any{"type": "string", "enum": []any{"Ecology", "Geology"}}, science["items"])

	funding := doc.Properties["funding_sources"]
	assert.Equal(t, map[string]any{"type": "integer", "description": "ID of the related FundingSource"}, funding["items"])

	existing := doc.Properties["existing_project"]
	assert.Equal(t, "integer", existing["type"])

	kind := doc.Properties["project_request_type"]
	assert.Equal(t, []any{"new", "renew", "add"}, kind["enum"])
	assert.Equal(t, []any{"Request new project", "Renew existing project", "Request add to existing project"}, kind["enumNames"])

	assert.Equal(t, "boolean", doc.Properties["interest_in_hpc"]["type"])
	assert.Equal(t, "PI email", doc.Properties["pi_email"]["title"])

	// served from the cache on the second call
	assert.True(t, mr.Exists("facilities:"+formSchemaCacheKey))
	again, err := svc.Schema(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(again))
	m.fields.AssertNumberOfCalls(t, "List", 1)
}
