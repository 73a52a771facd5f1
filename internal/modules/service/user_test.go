package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/pkg/paging"
	"github.com/waggle-sensor/facilities/internal/pkg/sshkeys"
	"gorm.io/gorm"
)

// MockUserRepo is a mock implementation of UserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepo) List(ctx context.Context, f repo.UserFilter) ([]*model.User, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *MockUserRepo) Update(ctx context.Context, u *model.User, fields map[string]any) error {
	args := m.Called(ctx, u, fields)
	return args.Error(0)
}

func (m *MockUserRepo) Delete(ctx context.Context, username string) error {
	args := m.Called(ctx, username)
	return args.Error(0)
}

// MockMembershipRepo is a mock implementation of MembershipRepo
type MockMembershipRepo struct {
	mock.Mock
}

func (m *MockMembershipRepo) UpsertUser(ctx context.Context, um *model.UserMembership) error {
	args := m.Called(ctx, um)
	return args.Error(0)
}

func (m *MockMembershipRepo) RemoveUser(ctx context.Context, projectID uint, userID uuid.UUID) error {
	args := m.Called(ctx, projectID, userID)
	return args.Error(0)
}

func (m *MockMembershipRepo) UpsertNode(ctx context.Context, nm *model.NodeMembership) error {
	args := m.Called(ctx, nm)
	return args.Error(0)
}

func (m *MockMembershipRepo) RemoveNode(ctx context.Context, projectID uint, nodeID uint) error {
	args := m.Called(ctx, projectID, nodeID)
	return args.Error(0)
}

func (m *MockMembershipRepo) ListProjectUsers(ctx context.Context, projectID uint) ([]*model.UserMembership, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserMembership), args.Error(1)
}

func (m *MockMembershipRepo) ListProjectNodes(ctx context.Context, projectID uint) ([]*model.NodeMembership, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.NodeMembership), args.Error(1)
}

func (m *MockMembershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.UserMembership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.UserMembership), args.Error(1)
}

func (m *MockMembershipRepo) ListByNode(ctx context.Context, nodeID uint) ([]*model.NodeMembership, error) {
	args := m.Called(ctx, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.NodeMembership), args.Error(1)
}

const testKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIGb2kqvFJ4aN7B0vU3b2Nn8Yc9i2pC1cQk2y8l1S5c3W alice@laptop"

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		in        CreateUserInput
		setup     func(*MockUserRepo)
		wantField string
		wantErr   error
	}{
		{
			name: "successful creation",
			in:   CreateUserInput{Username: " alice ", Email: "alice@example.org", SSHPublicKeys: testKey},
			setup: func(r *MockUserRepo) {
				r.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
					return u.Username == "alice" && u.IsActive && u.SSHPublicKeys == testKey
				})).Return(nil)
			},
		},
		{
			name:      "blank username",
			in:        CreateUserInput{Username: "  "},
			setup:     func(r *MockUserRepo) {},
			wantField: "username",
		},
		{
			name:      "invalid ssh keys",
			in:        CreateUserInput{Username: "bob", SSHPublicKeys: "not a key"},
			setup:     func(r *MockUserRepo) {},
			wantField: "ssh_public_keys",
		},
		{
			name: "duplicate username",
			in:   CreateUserInput{Username: "alice"},
			setup: func(r *MockUserRepo) {
				r.On("Create", ctx, mock.Anything).Return(gorm.ErrDuplicatedKey)
			},
			wantErr: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MockUserRepo{}
			tt.setup(r)
			svc := NewUserService(r, &MockMembershipRepo{})

			u, err := svc.Create(ctx, tt.in)

			switch {
			case tt.wantField != "":
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Contains(t, verr.Fields, tt.wantField)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, "alice", u.Username)
			}
			r.AssertExpectations(t)
		})
	}
}

func TestUserService_Get(t *testing.T) {
	ctx := context.Background()

	r := &MockUserRepo{}
	r.On("GetByUsername", ctx, "alice").Return(&model.User{Username: "alice"}, nil)
	r.On("GetByUsername", ctx, "ghost").Return(nil, gorm.ErrRecordNotFound)
	svc := NewUserService(r, &MockMembershipRepo{})

	u, err := svc.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Get(ctx, "")
	assert.Error(t, err)
}

func TestUserService_List(t *testing.T) {
	ctx := context.Background()
	users := []*model.User{{Username: "a"}, {Username: "b"}, {Username: "c"}}

	t.Run("has more", func(t *testing.T) {
		r := &MockUserRepo{}
		r.On("List", ctx, repo.UserFilter{Search: "x", Limit: 3}).Return(users, nil)
		svc := NewUserService(r, &MockMembershipRepo{})

		out, err := svc.List(ctx, ListUsersInput{Search: "x", Limit: 2})
		require.NoError(t, err)
		assert.True(t, out.HasMore)
		assert.Len(t, out.Items, 2)

		after, err := paging.DecodeKeyCursor(out.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, "b", after)
	})

	t.Run("cursor is passed through", func(t *testing.T) {
		r := &MockUserRepo{}
		r.On("List", ctx, repo.UserFilter{AfterUsername: "b", Limit: 3}).Return(users[2:], nil)
		svc := NewUserService(r, &MockMembershipRepo{})

		out, err := svc.List(ctx, ListUsersInput{Limit: 2, Cursor: paging.EncodeKeyCursor("b")})
		require.NoError(t, err)
		assert.False(t, out.HasMore)
		assert.Empty(t, out.NextCursor)
		assert.Len(t, out.Items, 1)
	})

	t.Run("bad cursor", func(t *testing.T) {
		svc := NewUserService(&MockUserRepo{}, &MockMembershipRepo{})
		_, err := svc.List(ctx, ListUsersInput{Cursor: "%%%"})
		assert.ErrorIs(t, err, paging.ErrInvalidCursor)
	})
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	email := "new@example.org"
	approved := true

	r := &MockUserRepo{}
	u := &model.User{Username: "alice"}
	r.On("GetByUsername", ctx, "alice").Return(u, nil)
	r.On("Update", ctx, u, map[string]any{"email": email, "is_approved": true}).Return(nil)
	svc := NewUserService(r, &MockMembershipRepo{})

	_, err := svc.Update(ctx, "alice", UpdateUserInput{Email: &email, IsApproved: &approved})
	require.NoError(t, err)
	r.AssertExpectations(t)
}

func TestUserService_UpdateProfile_RejectsTooManyKeys(t *testing.T) {
	ctx := context.Background()
	keys := testKey
	for i := 0; i < sshkeys.MaxKeys; i++ {
		keys += "\n" + testKey
	}

	r := &MockUserRepo{}
	svc := NewUserService(r, &MockMembershipRepo{})

	_, err := svc.UpdateProfile(ctx, "alice", UpdateProfileInput{SSHPublicKeys: &keys})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{sshkeys.ErrTooManyKeys.Error()}, verr.Fields["ssh_public_keys"])
	r.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()

	r := &MockUserRepo{}
	r.On("Delete", ctx, "alice").Return(nil)
	r.On("Delete", ctx, "ghost").Return(gorm.ErrRecordNotFound)
	svc := NewUserService(r, &MockMembershipRepo{})

	assert.NoError(t, svc.Delete(ctx, "alice"))
	assert.ErrorIs(t, svc.Delete(ctx, "ghost"), ErrNotFound)
}

func TestUserService_Memberships(t *testing.T) {
	ctx := context.Background()
	u := &model.User{ID: uuid.New(), Username: "alice"}

	r := &MockUserRepo{}
	r.On("GetByUsername", ctx, "alice").Return(u, nil)
	mr := &MockMembershipRepo{}
	mr.On("ListByUser", ctx, u.ID).Return([]*model.UserMembership{
		{Project: &model.Project{Name: "Sage"}, CanSchedule: true},
	}, nil)
	svc := NewUserService(r, mr)

	ms, err := svc.Memberships(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Same(t, u, ms[0].User)


	failing := &MockMembershipRepo{}
	failing.On("ListByUser", ctx, u.ID).Return(nil, errors.New("db down"))
	_, err = NewUserService(r, failing).Memberships(ctx, "alice")
	assert.Error(t, err)
}
