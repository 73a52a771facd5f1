package service

import (
	"context"
	"errors"
	"strings"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/pkg/paging"
	"github.com/waggle-sensor/facilities/internal/pkg/sshkeys"
)

type UserService interface {
	Create(ctx context.Context, in CreateUserInput) (*model.User, error)
	Get(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, in ListUsersInput) (*ListUsersOutput, error)
	Update(ctx context.Context, username string, in UpdateUserInput) (*model.User, error)
	UpdateProfile(ctx context.Context, username string, in UpdateProfileInput) (*model.User, error)
	Delete(ctx context.Context, username string) error
	KeyFingerprints(ctx context.Context, username string) ([]sshkeys.Key, error)
	Memberships(ctx context.Context, username string) ([]*model.UserMembership, error)
}

type userService struct {
	r  repo.UserRepo
	mr repo.MembershipRepo
}

func NewUserService(r repo.UserRepo, mr repo.MembershipRepo) UserService {
	return &userService{r: r, mr: mr}
}

type CreateUserInput struct {
	Username      string `json:"username" binding:"required,max=150"`
	Email         string `json:"email" binding:"omitempty,email,max=254"`
	Name          string `json:"name" binding:"max=255"`
	Organization  string `json:"organization" binding:"max=255"`
	Department    string `json:"department" binding:"max=255"`
	Bio           string `json:"bio" binding:"max=2000"`
	SSHPublicKeys string `json:"ssh_public_keys" binding:"omitempty,sshkeys"`
	IsStaff       bool   `json:"is_staff"`
	IsSuperuser   bool   `json:"is_superuser"`
	IsApproved    bool   `json:"is_approved"`
}

func (s *userService) Create(ctx context.Context, in CreateUserInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fieldError("username", msgRequired)
	}
	if err := sshkeys.Validate(in.SSHPublicKeys); err != nil {
		return nil, fieldError("ssh_public_keys", err.Error())
	}

	u := &model.User{
		Username:      username,
		Email:         in.Email,
		Name:          in.Name,
		Organization:  in.Organization,
		Department:    in.Department,
		Bio:           in.Bio,
		SSHPublicKeys: in.SSHPublicKeys,
		IsActive:      true,
		IsStaff:       in.IsStaff,
		IsSuperuser:   in.IsSuperuser,
		IsApproved:    in.IsApproved,
	}
	if err := s.r.Create(ctx, u); err != nil {
		return nil, translate(err, "user "+username)
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, username string) (*model.User, error) {
	if username == "" {
		return nil, errors.New("username is empty")
	}
	u, err := s.r.GetByUsername(ctx, username)
	if err != nil {
		return nil, translate(err, "user "+username)
	}
	return u, nil
}

type ListUsersInput struct {
	Search      string `json:"search"`
	IsSuperuser *bool  `json:"is_superuser"`
	IsApproved  *bool  `json:"is_approved"`
	Limit       int    `json:"limit"` // 0 means no limit (return all)
	Cursor      string `json:"cursor"`
}

type ListUsersOutput struct {
	Items      []*model.User `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

func (s *userService) List(ctx context.Context, in ListUsersInput) (*ListUsersOutput, error) {
	f := repo.UserFilter{
		Search:      in.Search,
		IsSuperuser: in.IsSuperuser,
		IsApproved:  in.IsApproved,
	}
	if in.Cursor != "" {
		after, err := paging.DecodeKeyCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
		f.AfterUsername = after
	}
	// Query limit+1 is used to determine has_more
	if in.Limit > 0 {
		f.Limit = in.Limit + 1
	}

	users, err := s.r.List(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &ListUsersOutput{Items: users}
	if in.Limit > 0 && len(users) > in.Limit {
		out.HasMore = true
		out.Items = users[:in.Limit]
		out.NextCursor = paging.EncodeKeyCursor(out.Items[len(out.Items)-1].Username)
	}
	return out, nil
}

// UpdateUserInput is the admin edit. Nil fields are left unchanged.
type UpdateUserInput struct {
	Email         *string `json:"email" binding:"omitempty,email,max=254"`
	Name          *string `json:"name" binding:"omitempty,max=255"`
	Organization  *string `json:"organization" binding:"omitempty,max=255"`
	Department    *string `json:"department" binding:"omitempty,max=255"`
	Bio           *string `json:"bio" binding:"omitempty,max=2000"`
	SSHPublicKeys *string `json:"ssh_public_keys" binding:"omitempty,sshkeys"`
	IsActive      *bool   `json:"is_active"`
	IsStaff       *bool   `json:"is_staff"`
	IsSuperuser   *bool   `json:"is_superuser"`
	IsApproved    *bool   `json:"is_approved"`
}

func (s *userService) Update(ctx context.Context, username string, in UpdateUserInput) (*model.User, error) {
	fields := map[string]any{}
	setString(fields, "email", in.Email)
	setString(fields, "name", in.Name)
	setString(fields, "organization", in.Organization)
	setString(fields, "department", in.Department)
	setString(fields, "bio", in.Bio)
	setBool(fields, "is_active", in.IsActive)
	setBool(fields, "is_staff", in.IsStaff)
	setBool(fields, "is_superuser", in.IsSuperuser)
	setBool(fields, "is_approved", in.IsApproved)
	if in.SSHPublicKeys != nil {
		if err := sshkeys.Validate(*in.SSHPublicKeys); err != nil {
			return nil, fieldError("ssh_public_keys", err.Error())
		}
		fields["ssh_public_keys"] = *in.SSHPublicKeys
	}
	return s.update(ctx, username, fields)
}

// UpdateProfileInput is the self-service edit. The username cannot change.
type UpdateProfileInput struct {
	Organization  *string `json:"organization" binding:"omitempty,max=255"`
	Department    *string `json:"department" binding:"omitempty,max=255"`
	Bio           *string `json:"bio" binding:"omitempty,max=2000"`
	SSHPublicKeys *string `json:"ssh_public_keys" binding:"omitempty,sshkeys"`
}

func (s *userService) UpdateProfile(ctx context.Context, username string, in UpdateProfileInput) (*model.User, error) {
	fields := map[string]any{}
	setString(fields, "organization", in.Organization)
	setString(fields, "department", in.Department)
	setString(fields, "bio", in.Bio)
	if in.SSHPublicKeys != nil {
		if err := sshkeys.Validate(*in.SSHPublicKeys); err != nil {
			return nil, fieldError("ssh_public_keys", err.Error())
		}
		fields["ssh_public_keys"] = *in.SSHPublicKeys
	}
	return s.update(ctx, username, fields)
}

func (s *userService) update(ctx context.Context, username string, fields map[string]any) (*model.User, error) {
	u, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.r.Update(ctx, u, fields); err != nil {
		return nil, translate(err, "user "+username)
	}
	return u, nil
}

func (s *userService) Delete(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("username is empty")
	}
	// memberships are removed by ON DELETE CASCADE
	return translate(s.r.Delete(ctx, username), "user "+username)
}

func (s *userService) KeyFingerprints(ctx context.Context, username string) ([]sshkeys.Key, error) {
	u, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	return sshkeys.Describe(u.SSHPublicKeys), nil
}

func (s *userService) Memberships(ctx context.Context, username string) ([]*model.UserMembership, error) {
	u, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	ms, err := s.mr.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		m.User = u
	}
	return ms, nil
}

func setString(fields map[string]any, col string, v *string) {
	if v != nil {
		fields[col] = *v
	}
}

func setBool(fields map[string]any, col string, v *bool) {
	if v != nil {
		fields[col] = *v
	}
}
