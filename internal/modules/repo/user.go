package repo

import (
	"context"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
)

type UserFilter struct {
	Search        string
	IsSuperuser   *bool
	IsApproved    *bool
	AfterUsername string
	Limit         int
}

type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context, f UserFilter) ([]*model.User, error)
	Update(ctx context.Context, u *model.User, fields map[string]any) error
	Delete(ctx context.Context, username string) error
}

type userRepo struct{ db *gorm.DB }

func NewUserRepo(db *gorm.DB) UserRepo {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	active := u.IsActive
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		// is_active defaults to true, so an explicit false is written afterwards
		if !active {
			if err := tx.Model(u).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context, f UserFilter) ([]*model.User, error) {
	q := r.db.WithContext(ctx).Model(&model.User{}).
		Scopes(searchScope(f.Search, "username", "name"), limitScope(f.Limit))
	if f.IsSuperuser != nil {
		q = q.Where("is_superuser = ?", *f.IsSuperuser)
	}
	if f.IsApproved != nil {
		q = q.Where("is_approved = ?", *f.IsApproved)
	}
	if f.AfterUsername != "" {
		q = q.Where("username > ?", f.AfterUsername)
	}

	var items []*model.User
	if err := q.Order("username ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *userRepo) Update(ctx context.Context, u *model.User, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(u).Updates(fields).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).First(u, "id = ?", u.ID).Error
}

// Delete removes the user. Memberships go with it through ON DELETE CASCADE.
func (r *userRepo) Delete(ctx context.Context, username string) error {
	return notFoundIfNone(r.db.WithContext(ctx).Where("username = ?", username).Delete(&model.User{}))
}
