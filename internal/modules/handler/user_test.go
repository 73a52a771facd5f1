package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/service"
	"github.com/waggle-sensor/facilities/internal/pkg/sshkeys"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Create(ctx context.Context, in service.CreateUserInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, in service.ListUsersInput) (*service.ListUsersOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListUsersOutput), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, username string, in service.UpdateUserInput) (*model.User, error) {
	args := m.Called(ctx, username, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, username string, in service.UpdateProfileInput) (*model.User, error) {
	args := m.Called(ctx, username, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

func (m *MockUserService) KeyFingerprints(ctx context.Context, username string) ([]sshkeys.Key, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]sshkeys.Key), args.Error(1)
}

func (m *MockUserService) Memberships(ctx context.Context, username string) ([]*model.UserMembership, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserMembership), args.Error(1)
}

const testBaseURL = "https://portal.example.org"

func TestUserHandler_ListUsers(t *testing.T) {
	approved := true

	tests := []struct {
		name           string
		query          string
		setup          func(*MockUserService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:  "all users",
			query: "",
			setup: func(svc *MockUserService) {
				svc.On("List", mock.Anything, service.ListUsersInput{}).Return(&service.ListUsersOutput{
					Items: []*model.User{{Username: "alice"}, {Username: "bob"}},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   testBaseURL + "/api/v1/users/bob",
		},
		{
			name:  "filters and page",
			query: "?search=al&is_approved=true&limit=1&cursor=abc",
			setup: func(svc *MockUserService) {
				svc.On("List", mock.Anything, service.ListUsersInput{
					Search:     "al",
					IsApproved: &approved,
					Limit:      1,
					Cursor:     "abc",
				}).Return(&service.ListUsersOutput{
					Items:      []*model.User{{Username: "alice"}},
					NextCursor: "next",
					HasMore:    true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"next_cursor":"next"`,
		},
		{
			name:           "limit too large",
			query:          "?limit=500",
			setup:          func(svc *MockUserService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "service error",
			query: "",
			setup: func(svc *MockUserService) {
				svc.On("List", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockUserService{}
			tt.setup(mockService)

			handler := NewUserHandler(mockService, testBaseURL)
			router := setupRouter(t)
			router.GET("/users", handler.ListUsers)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("GET", "/users"+tt.query, nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestUserHandler_CreateUser(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setup          func(*MockUserService)
		expectedStatus int
	}{
		{
			name: "created",
			body: `{"username":"alice","email":"alice@example.org","is_approved":true}`,
			setup: func(svc *MockUserService) {
				svc.On("Create", mock.Anything, service.CreateUserInput{
					Username:   "alice",
					Email:      "alice@example.org",
					IsApproved: true,
				}).Return(&model.User{Username: "alice", Email: "alice@example.org", IsApproved: true}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing username",
			body:           `{"email":"alice@example.org"}`,
			setup:          func(svc *MockUserService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "duplicate",
			body: `{"username":"alice"}`,
			setup: func(svc *MockUserService) {
				svc.On("Create", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("user alice: %w", service.ErrConflict))
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockUserService{}
			tt.setup(mockService)

			handler := NewUserHandler(mockService, testBaseURL)
			router := setupRouter(t)
			router.POST("/users", handler.CreateUser)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("POST", "/users", strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestUserHandler_CreateUser_Response(t *testing.T) {
	mockService := &MockUserService{}
	mockService.On("Create", mock.Anything, mock.Anything).Return(&model.User{Username: "alice", Name: "Alice"}, nil)

	handler := NewUserHandler(mockService, testBaseURL+"/")
	router := setupRouter(t)
	router.POST("/users", handler.CreateUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/users", strings.NewReader(`{"username":"alice"}`)))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{
		"url": "https://portal.example.org/api/v1/users/alice",
		"username": "alice",
		"email": "",
		"name": "Alice",
		"is_staff": false,
		"is_superuser": false,
		"is_approved": false,
		"ssh_public_keys": ""
	}`, string(decode(t, w).Data))
}

func TestUserHandler_GetUser_NotFound(t *testing.T) {
	mockService := &MockUserService{}
	mockService.On("Get", mock.Anything, "ghost").Return(nil, fmt.Errorf("user ghost: %w", service.ErrNotFound))

	handler := NewUserHandler(mockService, testBaseURL)
	router := setupRouter(t)
	router.GET("/users/:username", handler.GetUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/users/ghost", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockService.AssertExpectations(t)
}

func TestUserHandler_UpdateUser(t *testing.T) {
	staff := true
	mockService := &MockUserService{}
	mockService.On("Update", mock.Anything, "alice", service.UpdateUserInput{IsStaff: &staff}).
		Return(&model.User{Username: "alice", IsStaff: true}, nil)

	handler := NewUserHandler(mockService, testBaseURL)
	router := setupRouter(t)
	router.PATCH("/users/:username", handler.UpdateUser)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("PATCH", "/users/alice", strings.NewReader(`{"is_staff":true}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_staff":true`)
	mockService.AssertExpectations(t)
}

func TestUserHandler_DeleteUser(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "deleted", expectedStatus: http.StatusOK},
		{name: "not found", err: fmt.Errorf("user bob: %w", service.ErrNotFound), expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockUserService{}
			mockService.On("Delete", mock.Anything, "bob").Return(tt.err)

			handler := NewUserHandler(mockService, testBaseURL)
			router := setupRouter(t)
			router.DELETE("/users/:username", handler.DeleteUser)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest("DELETE", "/users/bob", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestUserHandler_Profile(t *testing.T) {
	key := "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIBq user@host"

	t.Run("get", func(t *testing.T) {
		mockService := &MockUserService{}
		mockService.On("Get", mock.Anything, "alice").Return(&model.User{Username: "alice", Organization: "ANL", Email: "secret@example.org"}, nil)

		handler := NewUserHandler(mockService, testBaseURL)
		router := setupRouter(t)
		router.GET("/users/:username/profile", handler.GetProfile)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/users/alice/profile", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"organization":"ANL"`)
		assert.NotContains(t, w.Body.String(), "secret@example.org")
	})

	t.Run("update keys", func(t *testing.T) {
		keys := key
		mockService := &MockUserService{}
		mockService.On("UpdateProfile", mock.Anything, "alice", service.UpdateProfileInput{SSHPublicKeys: &keys}).
			Return(&model.User{Username: "alice", SSHPublicKeys: key}, nil)

		handler := NewUserHandler(mockService, testBaseURL)
		router := setupRouter(t)
		router.PUT("/users/:username/profile", handler.UpdateProfile)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("PUT", "/users/alice/profile", strings.NewReader(`{"ssh_public_keys":"`+key+`"}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("too many keys", func(t *testing.T) {
		mockService := &MockUserService{}

		handler := NewUserHandler(mockService, testBaseURL)
		router := setupRouter(t)
		router.PUT("/users/:username/profile", handler.UpdateProfile)

		body := `{"ssh_public_keys":"` + strings.Repeat(key+`\n`, 6) + `"}`
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("PUT", "/users/alice/profile", strings.NewReader(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, []string{sshkeys.ErrTooManyKeys.Error()}, fieldErrors(t, w)["ssh_public_keys"])
		mockService.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUserHandler_GetKeyFingerprints(t *testing.T) {
	mockService := &MockUserService{}
	mockService.On("KeyFingerprints", mock.Anything, "alice").Return([]sshkeys.Key{{Type: "ssh-ed25519", Fingerprint: "SHA256:abc", Parsed: true}}, nil)

	handler := NewUserHandler(mockService, testBaseURL)
	router := setupRouter(t)
	router.GET("/users/:username/keys", handler.GetKeyFingerprints)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/users/alice/keys", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"type":"ssh-ed25519","fingerprint":"SHA256:abc","parsed":true}]`, string(decode(t, w).Data))
}

func TestUserHandler_ListUserMemberships(t *testing.T) {
	mockService := &MockUserService{}
	mockService.On("Memberships", mock.Anything, "alice").Return([]*model.UserMembership{{
		Project:     &model.Project{Name: "sage"},
		User:        &model.User{Username: "alice"},
		CanSchedule: true,
	}}, nil)

	handler := NewUserHandler(mockService, testBaseURL)
	router := setupRouter(t)
	router.GET("/users/:username/projects", handler.ListUserMemberships)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/users/alice/projects", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"project":"sage","username":"alice","can_schedule":true,"can_develop":false,"can_access_files":false,"allow_view":false}]`, string(decode(t, w).Data))
}
