package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MembershipRepo interface {
	// UpsertUser creates the membership or overwrites the flags of the existing one.
	UpsertUser(ctx context.Context, m *model.UserMembership) error
	RemoveUser(ctx context.Context, projectID uint, userID uuid.UUID) error
	UpsertNode(ctx context.Context, m *model.NodeMembership) error
	RemoveNode(ctx context.Context, projectID uint, nodeID uint) error

	ListProjectUsers(ctx context.Context, projectID uint) ([]*model.UserMembership, error)
	ListProjectNodes(ctx context.Context, projectID uint) ([]*model.NodeMembership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.UserMembership, error)
	ListByNode(ctx context.Context, nodeID uint) ([]*model.NodeMembership, error)
}

type membershipRepo struct{ db *gorm.DB }

func NewMembershipRepo(db *gorm.DB) MembershipRepo {
	return &membershipRepo{db: db}
}

func (r *membershipRepo) UpsertUser(ctx context.Context, m *model.UserMembership) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"can_schedule", "can_develop", "can_access_files", "allow_view"}),
		}).
		Create(m).Error
}

func (r *membershipRepo) RemoveUser(ctx context.Context, projectID uint, userID uuid.UUID) error {
	return notFoundIfNone(r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.UserMembership{}))
}

func (r *membershipRepo) UpsertNode(ctx context.Context, m *model.NodeMembership) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "node_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"can_schedule", "can_develop"}),
		}).
		Create(m).Error
}

func (r *membershipRepo) RemoveNode(ctx context.Context, projectID uint, nodeID uint) error {
	return notFoundIfNone(r.db.WithContext(ctx).
		Where("project_id = ? AND node_id = ?", projectID, nodeID).
		Delete(&model.NodeMembership{}))
}

func (r *membershipRepo) ListProjectUsers(ctx context.Context, projectID uint) ([]*model.UserMembership, error) {
	var items []*model.UserMembership
	err := r.db.WithContext(ctx).
		Joins("User").
		Where("user_memberships.project_id = ?", projectID).
		Order(`"User"."username" ASC`).
		Find(&items).Error
	return items, err
}

func (r *membershipRepo) ListProjectNodes(ctx context.Context, projectID uint) ([]*model.NodeMembership, error) {
	var items []*model.NodeMembership
	err := r.db.WithContext(ctx).
		Joins("Node").
		Where("node_memberships.project_id = ?", projectID).
		Order(`"Node"."vsn" ASC`).
		Find(&items).Error
	return items, err
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*model.UserMembership, error) {
	var items []*model.UserMembership
	err := r.db.WithContext(ctx).
		Joins("Project").
		Where("user_memberships.user_id = ?", userID).
		Order(`"Project"."name" ASC`).
		Find(&items).Error
	return items, err
}

func (r *membershipRepo) ListByNode(ctx context.Context, nodeID uint) ([]*model.NodeMembership, error) {
	var items []*model.NodeMembership
	err := r.db.WithContext(ctx).
		Joins("Project").
		Where("node_memberships.node_id = ?", nodeID).
		Order(`"Project"."name" ASC`).
		Find(&items).Error
	return items, err
}
