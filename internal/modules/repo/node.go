package repo

import (
	"context"

	"github.com/waggle-sensor/facilities/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NodeFilter struct {
	Search      string
	FilesPublic *bool
	AfterVSN    string
	Limit       int
}

type NodeRepo interface {
	// Create stores the node and its token in one transaction.
	Create(ctx context.Context, n *model.Node, tok *model.NodeToken) error
	GetByVSN(ctx context.Context, vsn string) (*model.Node, error)
	GetByTokenLookup(ctx context.Context, lookup string) (*model.Node, error)
	List(ctx context.Context, f NodeFilter) ([]*model.Node, error)
	Update(ctx context.Context, n *model.Node, fields map[string]any) error
	Delete(ctx context.Context, vsn string) error
	ReplaceToken(ctx context.Context, nodeID uint, tok *model.NodeToken) error
}

type nodeRepo struct{ db *gorm.DB }

func NewNodeRepo(db *gorm.DB) NodeRepo {
	return &nodeRepo{db: db}
}

func (r *nodeRepo) Create(ctx context.Context, n *model.Node, tok *model.NodeToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Token", "Memberships").Create(n).Error; err != nil {
			return err
		}
		tok.NodeID = n.ID
		return tx.Create(tok).Error
	})
}

func (r *nodeRepo) GetByVSN(ctx context.Context, vsn string) (*model.Node, error) {
	var n model.Node
	if err := r.db.WithContext(ctx).Where("vsn = ?", vsn).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *nodeRepo) GetByTokenLookup(ctx context.Context, lookup string) (*model.Node, error) {
	var tok model.NodeToken
	if err := r.db.WithContext(ctx).Where(&model.NodeToken{SecretKeyHMAC: lookup}).First(&tok).Error; err != nil {
		return nil, err
	}
	var n model.Node
	if err := r.db.WithContext(ctx).First(&n, "id = ?", tok.NodeID).Error; err != nil {
		return nil, err
	}
	n.Token = &tok
	return &n, nil
}

func (r *nodeRepo) List(ctx context.Context, f NodeFilter) ([]*model.Node, error) {
	q := r.db.WithContext(ctx).Model(&model.Node{}).
		Scopes(searchScope(f.Search, "vsn", "mac"), limitScope(f.Limit))
	if f.FilesPublic != nil {
		q = q.Where("files_public = ?", *f.FilesPublic)
	}
	if f.AfterVSN != "" {
		q = q.Where("vsn > ?", f.AfterVSN)
	}

	var items []*model.Node
	if err := q.Order("vsn ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *nodeRepo) Update(ctx context.Context, n *model.Node, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(n).Omit(clause.Associations).Updates(fields).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).First(n, "id = ?", n.ID).Error
}

// Delete removes the node. Memberships and the token go with it through ON DELETE CASCADE.
func (r *nodeRepo) Delete(ctx context.Context, vsn string) error {
	return notFoundIfNone(r.db.WithContext(ctx).Where("vsn = ?", vsn).Delete(&model.Node{}))
}

func (r *nodeRepo) ReplaceToken(ctx context.Context, nodeID uint, tok *model.NodeToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("node_id = ?", nodeID).Delete(&model.NodeToken{}).Error; err != nil {
			return err
		}
		tok.NodeID = nodeID
		return tx.Create(tok).Error
	})
}
