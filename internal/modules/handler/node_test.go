package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/service"
)

type MockNodeService struct {
	mock.Mock
}

func (m *MockNodeService) Create(ctx context.Context, in service.CreateNodeInput) (*model.Node, string, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*model.Node), args.String(1), args.Error(2)
}

func (m *MockNodeService) Get(ctx context.Context, vsn string) (*model.Node, error) {
	args := m.Called(ctx, vsn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Node), args.Error(1)
}

func (m *MockNodeService) List(ctx context.Context, in service.ListNodesInput) (*service.ListNodesOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListNodesOutput), args.Error(1)
}

func (m *MockNodeService) Update(ctx context.Context, vsn string, in service.UpdateNodeInput) (*model.Node, error) {
	args := m.Called(ctx, vsn, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Node), args.Error(1)
}

func (m *MockNodeService) Delete(ctx context.Context, vsn string) error {
	args := m.Called(ctx, vsn)
	return args.Error(0)
}

func (m *MockNodeService) RotateToken(ctx context.Context, vsn string) (*model.Node, string, error) {
	args := m.Called(ctx, vsn)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*model.Node), args.String(1), args.Error(2)
}

func (m *MockNodeService) Authenticate(ctx context.Context, raw string) (*model.Node, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Node), args.Error(1)
}

func (m *MockNodeService) Memberships(ctx context.Context, n *model.Node) ([]*model.NodeMembership, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.NodeMembership), args.Error(1)
}

func TestNodeHandler_CreateNode(t *testing.T) {
	mac := "0000001e06107d97"

	tests := []struct {
		name           string
		body           string
		setup          func(*MockNodeService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "created with token",
			body: `{"vsn":"W01A","mac":"0000001e06107d97","files_public":true}`,
			setup: func(svc *MockNodeService) {
				svc.On("Create", mock.Anything, service.CreateNodeInput{VSN: "W01A", MAC: &mac, FilesPublic: true}).
					Return(&model.Node{VSN: "W01A", MAC: &mac, FilesPublic: true}, "node_secret", nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"token":"node_secret"`,
		},
		{
			name:           "vsn too long",
			body:           `{"vsn":"` + strings.Repeat("W", 31) + `"}`,
			setup:          func(svc *MockNodeService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"vsn"`,
		},
		{
			name: "duplicate vsn",
			body: `{"vsn":"W01A"}`,
			setup: func(svc *MockNodeService) {
				svc.On("Create", mock.Anything, mock.Anything).Return(nil, "", fmt.Errorf("node W01A: %w", service.ErrConflict))
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockNodeService{}
			tt.setup(mockService)

			handler := NewNodeHandler(mockService)
			router := setupRouter(t)
			router.POST("/nodes", handler.CreateNode)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("POST", "/nodes", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestNodeHandler_ListNodes(t *testing.T) {
	public := false
	mockService := &MockNodeService{}
	mockService.On("List", mock.Anything, service.ListNodesInput{FilesPublic: &public, Limit: 2}).
		Return(&service.ListNodesOutput{Items: []*model.Node{{VSN: "W01A"}, {VSN: "W01B"}}, NextCursor: "c", HasMore: true}, nil)

	handler := NewNodeHandler(mockService)
	router := setupRouter(t)
	router.GET("/nodes", handler.ListNodes)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/nodes?files_public=false&limit=2", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"has_more":true`)
	assert.Contains(t, w.Body.String(), `"vsn":"W01B"`)
	mockService.AssertExpectations(t)
}

func TestNodeHandler_GetNode_NeverLeaksToken(t *testing.T) {
	mockService := &MockNodeService{}
	mockService.On("Get", mock.Anything, "W01A").Return(&model.Node{
		VSN:   "W01A",
		Token: &model.NodeToken{SecretKeyHMAC: "abc123", SecretKeyHashPHC: "$argon2id$v=19$hash"},
	}, nil)

	handler := NewNodeHandler(mockService)
	router := setupRouter(t)
	router.GET("/nodes/:vsn", handler.GetNode)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/nodes/W01A", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "argon2id")
	assert.NotContains(t, w.Body.String(), "abc123")
	assert.NotContains(t, w.Body.String(), "token")
}

func TestNodeHandler_UpdateAndDelete(t *testing.T) {
	public := true
	mockService := &MockNodeService{}
	mockService.On("Update", mock.Anything, "W01A", service.UpdateNodeInput{FilesPublic: &public}).
		Return(&model.Node{VSN: "W01A", FilesPublic: true}, nil)
	mockService.On("Delete", mock.Anything, "W01A").Return(nil)
	mockService.On("Delete", mock.Anything, "W404").Return(fmt.Errorf("node W404: %w", service.ErrNotFound))

	handler := NewNodeHandler(mockService)
	router := setupRouter(t)
	router.PATCH("/nodes/:vsn", handler.UpdateNode)
	router.DELETE("/nodes/:vsn", handler.DeleteNode)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PATCH", "/nodes/W01A", strings.NewReader(`{"files_public":true}`)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"files_public":true`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/nodes/W01A", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("DELETE", "/nodes/W404", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	mockService.AssertExpectations(t)
}

func TestNodeHandler_RotateToken(t *testing.T) {
	mockService := &MockNodeService{}
	mockService.On("RotateToken", mock.Anything, "W01A").Return(&model.Node{VSN: "W01A"}, "node_new", nil)

	handler := NewNodeHandler(mockService)
	router := setupRouter(t)
	router.POST("/nodes/:vsn/token", handler.RotateToken)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/nodes/W01A/token", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"vsn":"W01A","mac":null,"files_public":false,"commissioning_date":null,"token":"node_new"}`, string(decode(t, w).Data))
}

func TestNodeHandler_GetSelf(t *testing.T) {
	node := &model.Node{ID: 3, VSN: "W01A"}
	mockService := &MockNodeService{}
	mockService.On("Memberships", mock.Anything, node).Return([]*model.NodeMembership{
		{Project: &model.Project{Name: "sage"}, Node: node, CanSchedule: true},
	}, nil)

	handler := NewNodeHandler(mockService)
	router := setupRouter(t)
	router.GET("/node/self", func(c *gin.Context) {
		c.Set("node", node)
		handler.GetSelf(c)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/node/self", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"vsn": "W01A",
		"mac": null,
		"files_public": false,
		"commissioning_date": null,
		"projects": [{"project": "sage", "vsn": "W01A", "can_schedule": true, "can_develop": false}]
	}`, string(decode(t, w).Data))
	mockService.AssertExpectations(t)
}
