package repo

import (
	"context"
	"time"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
)

type AllocationRequestFilter struct {
	Search         string
	IsApproved     *bool
	RequestType    string
	AfterCreatedAt time.Time
	AfterID        uint
	Limit          int
}

type AllocationRequestRepo interface {
	// Create stores the request and links its existing science fields and funding sources.
	Create(ctx context.Context, ar *model.AllocationRequest) error
	GetByUsername(ctx context.Context, username string) (*model.AllocationRequest, error)
	// List orders newest first.
	List(ctx context.Context, f AllocationRequestFilter) ([]*model.AllocationRequest, error)
	SetApproved(ctx context.Context, username string, approved bool) (*model.AllocationRequest, error)
	Delete(ctx context.Context, username string) error
}

type allocationRequestRepo struct{ db *gorm.DB }

func NewAllocationRequestRepo(db *gorm.DB) AllocationRequestRepo {
	return &allocationRequestRepo{db: db}
}

func withLinks(db *gorm.DB) *gorm.DB {
	return db.
		Preload("ScienceFields", func(db *gorm.DB) *gorm.DB { return db.Order("science_fields.name ASC") }).
		Preload("FundingSources", func(db *gorm.DB) *gorm.DB { return db.Order("funding_sources.id ASC") })
}

func (r *allocationRequestRepo) Create(ctx context.Context, ar *model.AllocationRequest) error {
	// linked rows already exist; only the join rows are written
	return r.db.WithContext(ctx).
		Omit("ScienceFields.*", "FundingSources.*", "ExistingProject").
		Create(ar).Error
}

func (r *allocationRequestRepo) GetByUsername(ctx context.Context, username string) (*model.AllocationRequest, error) {
	var ar model.AllocationRequest
	if err := r.db.WithContext(ctx).Scopes(withLinks).Where("username = ?", username).First(&ar).Error; err != nil {
		return nil, err
	}
	return &ar, nil
}

func (r *allocationRequestRepo) List(ctx context.Context, f AllocationRequestFilter) ([]*model.AllocationRequest, error) {
	q := r.db.WithContext(ctx).Model(&model.AllocationRequest{}).
		Scopes(withLinks, searchScope(f.Search, "username"), limitScope(f.Limit))
	if f.IsApproved != nil {
		q = q.Where("is_approved = ?", *f.IsApproved)
	}
	if f.RequestType != "" {
		q = q.Where("project_request_type = ?", f.RequestType)
	}
	if !f.AfterCreatedAt.IsZero() {
		q = q.Where("(created_at, id) < (?, ?)", f.AfterCreatedAt, f.AfterID)
	}

	var items []*model.AllocationRequest
	if err := q.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *allocationRequestRepo) SetApproved(ctx context.Context, username string, approved bool) (*model.AllocationRequest, error) {
	res := r.db.WithContext(ctx).Model(&model.AllocationRequest{}).
		Where("username = ?", username).
		Update("is_approved", approved)
	if err := notFoundIfNone(res); err != nil {
		return nil, err
	}
	return r.GetByUsername(ctx, username)
}

func (r *allocationRequestRepo) Delete(ctx context.Context, username string) error {
	return notFoundIfNone(r.db.WithContext(ctx).Where("username = ?", username).Delete(&model.AllocationRequest{}))
}
