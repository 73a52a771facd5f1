package repo

import (
	"context"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectFilter struct {
	Search       string
	IncludeInAPI *bool
	AfterName    string
	Limit        int
}

type ProjectRepo interface {
	Create(ctx context.Context, p *model.Project) error
	// GetByName loads the project with its memberships, users and nodes.
	GetByName(ctx context.Context, name string) (*model.Project, error)
	GetByID(ctx context.Context, id uint) (*model.Project, error)
	List(ctx context.Context, f ProjectFilter) ([]*model.Project, error)
	Update(ctx context.Context, p *model.Project, fields map[string]any) error
	Delete(ctx context.Context, name string) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.
		Preload("UserMemberships.User").
		Preload("NodeMemberships.Node")
}

func (r *projectRepo) Create(ctx context.Context, p *model.Project) error {
	include := p.IncludeInAPI
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		// include_in_api defaults to true, so an explicit false is written afterwards
		if !include {
			if err := tx.Model(p).Update("include_in_api", false).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *projectRepo) GetByName(ctx context.Context, name string) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).Scopes(withMembers).Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) GetByID(ctx context.Context, id uint) (*model.Project, error) {
	var p model.Project
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepo) List(ctx context.Context, f ProjectFilter) ([]*model.Project, error) {
	q := r.db.WithContext(ctx).Model(&model.Project{}).
		Scopes(withMembers, searchScope(f.Search, "name"), limitScope(f.Limit))
	if f.IncludeInAPI != nil {
		q = q.Where("include_in_api = ?", *f.IncludeInAPI)
	}
	if f.AfterName != "" {
		q = q.Where("name > ?", f.AfterName)
	}

	var items []*model.Project
	if err := q.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *projectRepo) Update(ctx context.Context, p *model.Project, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(p).Omit(clause.Associations).Updates(fields).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Scopes(withMembers).First(p, "id = ?", p.ID).Error
}

// Delete removes the project. Memberships cascade and allocation requests keep a NULL existing_project.
func (r *projectRepo) Delete(ctx context.Context, name string) error {
	return notFoundIfNone(r.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Project{}))
}
