package repo

import (
	"context"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ManifestRepo interface {
	CreateComputeHardware(ctx context.Context, h *model.ComputeHardware) error
	ListComputeHardware(ctx context.Context) ([]*model.ComputeHardware, error)
	CreateResourceHardware(ctx context.Context, h *model.ResourceHardware) error
	ListResourceHardware(ctx context.Context) ([]*model.ResourceHardware, error)
	CreateSensorHardware(ctx context.Context, h *model.SensorHardware) error
	ListSensorHardware(ctx context.Context) ([]*model.SensorHardware, error)

	// GetOrCreate* look rows up by their natural key and insert the missing ones.
	GetOrCreateCapabilities(ctx context.Context, names []string) ([]model.Capability, error)
	GetOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error)
	GetOrCreateLabels(ctx context.Context, names []string) ([]model.Label, error)

	CreateNodeData(ctx context.Context, n *model.NodeData) error
	// GetNodeData loads the full manifest tree of one node.
	GetNodeData(ctx context.Context, vsn string) (*model.NodeData, error)
	ListNodeData(ctx context.Context) ([]*model.NodeData, error)
	DeleteNodeData(ctx context.Context, vsn string) error
	ReplaceTags(ctx context.Context, n *model.NodeData, tags []model.Tag) error

	AddCompute(ctx context.Context, c *model.Compute) error
	GetCompute(ctx context.Context, nodeID uint, name string) (*model.Compute, error)
	AddNodeSensor(ctx context.Context, s *model.NodeSensor) error
	AddComputeSensor(ctx context.Context, s *model.ComputeSensor) error
	AddResource(ctx context.Context, r *model.Resource) error

	SavePublication(ctx context.Context, p *model.ManifestPublication) error
	GetPublication(ctx context.Context, nodeDataID uint) (*model.ManifestPublication, error)
}

type manifestRepo struct{ db *gorm.DB }

func NewManifestRepo(db *gorm.DB) ManifestRepo {
	return &manifestRepo{db: db}
}

func (r *manifestRepo) CreateComputeHardware(ctx context.Context, h *model.ComputeHardware) error {
	return r.db.WithContext(ctx).Omit("Capabilities.*").Create(h).Error
}

func (r *manifestRepo) ListComputeHardware(ctx context.Context) ([]*model.ComputeHardware, error) {
	var items []*model.ComputeHardware
	err := r.db.WithContext(ctx).Preload("Capabilities").Order("hardware ASC").Find(&items).Error
	return items, err
}

func (r *manifestRepo) CreateResourceHardware(ctx context.Context, h *model.ResourceHardware) error {
	return r.db.WithContext(ctx).Omit("Capabilities.*").Create(h).Error
}

func (r *manifestRepo) ListResourceHardware(ctx context.Context) ([]*model.ResourceHardware, error) {
	var items []*model.ResourceHardware
	err := r.db.WithContext(ctx).Preload("Capabilities").Order("hardware ASC").Find(&items).Error
	return items, err
}

func (r *manifestRepo) CreateSensorHardware(ctx context.Context, h *model.SensorHardware) error {
	return r.db.WithContext(ctx).Omit("Capabilities.*").Create(h).Error
}

func (r *manifestRepo) ListSensorHardware(ctx context.Context) ([]*model.SensorHardware, error) {
	var items []*model.SensorHardware
	err := r.db.WithContext(ctx).Preload("Capabilities").Order("hardware ASC").Find(&items).Error
	return items, err
}

// getOrCreate inserts rows for names (ignoring existing ones) and returns all rows matching names.
func getOrCreate[T any](ctx context.Context, db *gorm.DB, column string, names []string, build func(string) T) ([]T, error) {
	var out []T
	if len(names) == 0 {
		return out, nil
	}
	rows := make([]T, len(names))
	for i, n := range names {
		rows[i] = build(n)
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: column}}, DoNothing: true}).
			Create(&rows).Error; err != nil {
			return err
		}
		return tx.Where(column+" IN ?", names).Order(column + " ASC").Find(&out).Error
	})
	return out, err
}

func (r *manifestRepo) GetOrCreateCapabilities(ctx context.Context, names []string) ([]model.Capability, error) {
	return getOrCreate(ctx, r.db, "capability", names, func(n string) model.Capability {
		return model.Capability{Capability: n}
	})
}

func (r *manifestRepo) GetOrCreateTags(ctx context.Context, names []string) ([]model.Tag, error) {
	return getOrCreate(ctx, r.db, "tag", names, func(n string) model.Tag {
		return model.Tag{Tag: n}
	})
}

func (r *manifestRepo) GetOrCreateLabels(ctx context.Context, names []string) ([]model.Label, error) {
	return getOrCreate(ctx, r.db, "label", names, func(n string) model.Label {
		return model.Label{Label: n}
	})
}

func (r *manifestRepo) CreateNodeData(ctx context.Context, n *model.NodeData) error {
	return r.db.WithContext(ctx).
		Omit("Tags.*", "Computes", "Resources", "Sensors").
		Create(n).Error
}

func withManifest(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Tags").
		Preload("Computes", func(db *gorm.DB) *gorm.DB { return db.Order("computes.name ASC") }).
		Preload("Computes.Hardware.Capabilities").
		Preload("Computes.Sensors", func(db *gorm.DB) *gorm.DB { return db.Order("compute_sensors.name ASC") }).
		Preload("Computes.Sensors.Hardware.Capabilities").
		Preload("Computes.Sensors.Labels").
		Preload("Resources", func(db *gorm.DB) *gorm.DB { return db.Order("resources.name ASC") }).
		Preload("Resources.Hardware.Capabilities").
		Preload("Sensors", func(db *gorm.DB) *gorm.DB { return db.Order("node_sensors.name ASC") }).
		Preload("Sensors.Hardware.Capabilities").
		Preload("Sensors.Labels")
}

func (r *manifestRepo) GetNodeData(ctx context.Context, vsn string) (*model.NodeData, error) {
	var n model.NodeData
	if err := r.db.WithContext(ctx).Scopes(withManifest).Where("vsn = ?", vsn).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *manifestRepo) ListNodeData(ctx context.Context) ([]*model.NodeData, error) {
	var items []*model.NodeData
	err := r.db.WithContext(ctx).Scopes(withManifest).Order("vsn ASC").Find(&items).Error
	return items, err
}

// DeleteNodeData removes the node's inventory. Components and tag links cascade.
func (r *manifestRepo) DeleteNodeData(ctx context.Context, vsn string) error {
	return notFoundIfNone(r.db.WithContext(ctx).Where("vsn = ?", vsn).Delete(&model.NodeData{}))
}

func (r *manifestRepo) ReplaceTags(ctx context.Context, n *model.NodeData, tags []model.Tag) error {
	return r.db.WithContext(ctx).Model(n).Association("Tags").Replace(tags)
}

func (r *manifestRepo) AddCompute(ctx context.Context, c *model.Compute) error {
	return r.db.WithContext(ctx).Omit("Hardware", "Sensors").Create(c).Error
}

func (r *manifestRepo) GetCompute(ctx context.Context, nodeID uint, name string) (*model.Compute, error) {
	var c model.Compute
	if err := r.db.WithContext(ctx).Where("node_id = ? AND name = ?", nodeID, name).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *manifestRepo) AddNodeSensor(ctx context.Context, s *model.NodeSensor) error {
	return r.db.WithContext(ctx).Omit("Hardware", "Labels.*").Create(s).Error
}

func (r *manifestRepo) AddComputeSensor(ctx context.Context, s *model.ComputeSensor) error {
	return r.db.WithContext(ctx).Omit("Hardware", "Labels.*").Create(s).Error
}

func (r *manifestRepo) AddResource(ctx context.Context, res *model.Resource) error {
	return r.db.WithContext(ctx).Omit("Hardware").Create(res).Error
}

func (r *manifestRepo) SavePublication(ctx context.Context, p *model.ManifestPublication) error {
	return r.db.WithContext(ctx).
		Omit("NodeData").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "node_data_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"object_key", "etag", "summary", "published_at"}),
		}).
		Create(p).Error
}

func (r *manifestRepo) GetPublication(ctx context.Context, nodeDataID uint) (*model.ManifestPublication, error) {
	var p model.ManifestPublication
	if err := r.db.WithContext(ctx).Where("node_data_id = ?", nodeDataID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
