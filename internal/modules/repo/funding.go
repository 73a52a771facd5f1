package repo

import (
	"context"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FundingSourceRepo interface {
	Create(ctx context.Context, f *model.FundingSource) error
	List(ctx context.Context, search string) ([]*model.FundingSource, error)
	GetByIDs(ctx context.Context, ids []uint) ([]model.FundingSource, error)
	Delete(ctx context.Context, id uint) error
}

type fundingSourceRepo struct{ db *gorm.DB }

func NewFundingSourceRepo(db *gorm.DB) FundingSourceRepo {
	return &fundingSourceRepo{db: db}
}

func (r *fundingSourceRepo) Create(ctx context.Context, f *model.FundingSource) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fundingSourceRepo) List(ctx context.Context, search string) ([]*model.FundingSource, error) {
	var items []*model.FundingSource
	err := r.db.WithContext(ctx).
		Scopes(searchScope(search, "source", "grant_number")).
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *fundingSourceRepo) GetByIDs(ctx context.Context, ids []uint) ([]model.FundingSource, error) {
	var items []model.FundingSource
	if len(ids) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&items).Error
	return items, err
}

func (r *fundingSourceRepo) Delete(ctx context.Context, id uint) error {
	return notFoundIfNone(r.db.WithContext(ctx).Delete(&model.FundingSource{}, id))
}

type ScienceFieldRepo interface {
	// List returns all fields ordered by name.
	List(ctx context.Context) ([]*model.ScienceField, error)
	Create(ctx context.Context, f *model.ScienceField) error
	GetByNames(ctx context.Context, names []string) ([]model.ScienceField, error)
	// EnsureNames creates the missing names and returns how many rows were inserted.
	EnsureNames(ctx context.Context, names []string) (int64, error)
	Delete(ctx context.Context, id uint) error
}

type scienceFieldRepo struct{ db *gorm.DB }

func NewScienceFieldRepo(db *gorm.DB) ScienceFieldRepo {
	return &scienceFieldRepo{db: db}
}

func (r *scienceFieldRepo) List(ctx context.Context) ([]*model.ScienceField, error) {
	var items []*model.ScienceField
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *scienceFieldRepo) Create(ctx context.Context, f *model.ScienceField) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *scienceFieldRepo) GetByNames(ctx context.Context, names []string) ([]model.ScienceField, error) {
	var items []model.ScienceField
	if len(names) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).Where("name IN ?", names).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *scienceFieldRepo) EnsureNames(ctx context.Context, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}
	rows := make([]model.ScienceField, len(names))
	for i, n := range names {
		rows[i] = model.ScienceField{Name: n}
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

func (r *scienceFieldRepo) Delete(ctx context.Context, id uint) error {
	return notFoundIfNone(r.db.WithContext(ctx).Delete(&model.ScienceField{}, id))
}
