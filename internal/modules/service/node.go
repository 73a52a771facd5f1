package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/pkg/paging"
	"github.com/waggle-sensor/facilities/internal/pkg/utils/secrets"
	"github.com/waggle-sensor/facilities/internal/pkg/utils/tokens"
	"github.com/waggle-sensor/facilities/internal/telemetry"
	"go.uber.org/zap"
)

// ErrInvalidToken is returned by Authenticate for any credential that does not resolve to a node.
var ErrInvalidToken = errors.New("invalid node token")

type NodeService interface {
	// Create stores the node and returns the raw token. The token is not retrievable later.
	Create(ctx context.Context, in CreateNodeInput) (*model.Node, string, error)
	Get(ctx context.Context, vsn string) (*model.Node, error)
	List(ctx context.Context, in ListNodesInput) (*ListNodesOutput, error)
	Update(ctx context.Context, vsn string, in UpdateNodeInput) (*model.Node, error)
	Delete(ctx context.Context, vsn string) error
	RotateToken(ctx context.Context, vsn string) (*model.Node, string, error)
	Authenticate(ctx context.Context, raw string) (*model.Node, error)
	Memberships(ctx context.Context, n *model.Node) ([]*model.NodeMembership, error)
}

type nodeService struct {
	r      repo.NodeRepo
	mr     repo.MembershipRepo
	cfg    *config.Config
	events eventSink
	log    *zap.Logger
}

func NewNodeService(r repo.NodeRepo, mr repo.MembershipRepo, cfg *config.Config, pub EventPublisher, log *zap.Logger) NodeService {
	if log == nil {
		log = zap.NewNop()
	}
	return &nodeService{
		r:      r,
		mr:     mr,
		cfg:    cfg,
		events: newEventSink(pub, cfg.RabbitMQ.ExchangeName.Facilities, log),
		log:    log,
	}
}

type CreateNodeInput struct {
	VSN               string     `json:"vsn" binding:"required,max=30"`
	MAC               *string    `json:"mac" binding:"omitempty,max=16"`
	FilesPublic       bool       `json:"files_public"`
	CommissioningDate *time.Time `json:"commissioning_date"`
}

type nodeCreatedEvent struct {
	VSN string `json:"vsn"`
}

func (s *nodeService) Create(ctx context.Context, in CreateNodeInput) (*model.Node, string, error) {
	vsn := strings.TrimSpace(in.VSN)
	if vsn == "" {
		return nil, "", fieldError("vsn", msgRequired)
	}
	n := &model.Node{
		VSN:               vsn,
		MAC:               blankToNil(in.MAC),
		FilesPublic:       in.FilesPublic,
		CommissioningDate: in.CommissioningDate,
	}

	tok, raw, err := s.issueToken()
	if err != nil {
		return nil, "", err
	}
	if err := s.r.Create(ctx, n, tok); err != nil {
		return nil, "", translate(err, "node "+vsn)
	}
	telemetry.RecordNodeToken(ctx, "create")
	s.events.emit(ctx, s.cfg.RabbitMQ.RoutingKey.NodeCreated, nodeCreatedEvent{VSN: n.VSN})
	return n, raw, nil
}

func (s *nodeService) issueToken() (*model.NodeToken, string, error) {
	issued, err := tokens.Generate(s.cfg.Root.NodeTokenPrefix, s.cfg.Root.SecretPepper)
	if err != nil {
		return nil, "", err
	}
	phc, err := secrets.HashSecret(issued.Secret, s.cfg.Root.SecretPepper)
	if err != nil {
		return nil, "", err
	}
	return &model.NodeToken{SecretKeyHMAC: issued.Lookup, SecretKeyHashPHC: phc}, issued.Raw, nil
}

func (s *nodeService) Get(ctx context.Context, vsn string) (*model.Node, error) {
	if vsn == "" {
		return nil, errors.New("vsn is empty")
	}
	n, err := s.r.GetByVSN(ctx, vsn)
	if err != nil {
		return nil, translate(err, "node "+vsn)
	}
	return n, nil
}

type ListNodesInput struct {
	Search      string `json:"search"`
	FilesPublic *bool  `json:"files_public"`
	Limit       int    `json:"limit"`
	Cursor      string `json:"cursor"`
}

type ListNodesOutput struct {
	Items      []*model.Node `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

func (s *nodeService) List(ctx context.Context, in ListNodesInput) (*ListNodesOutput, error) {
	f := repo.NodeFilter{Search: in.Search, FilesPublic: in.FilesPublic}
	if in.Cursor != "" {
		after, err := paging.DecodeKeyCursor(in.Cursor)
		if err != nil {
			return nil, err
		}
		f.AfterVSN = after
	}
	if in.Limit > 0 {
		f.Limit = in.Limit + 1
	}

	nodes, err := s.r.List(ctx, f)
	if err != nil {
		return nil, err
	}

	out := &ListNodesOutput{Items: nodes}
	if in.Limit > 0 && len(nodes) > in.Limit {
		out.HasMore = true
		out.Items = nodes[:in.Limit]
		out.NextCursor = paging.EncodeKeyCursor(out.Items[len(out.Items)-1].VSN)
	}
	return out, nil
}

type UpdateNodeInput struct {
	MAC               *string    `json:"mac" binding:"omitempty,max=16"`
	FilesPublic       *bool      `json:"files_public"`
	CommissioningDate *time.Time `json:"commissioning_date"`
}

func (s *nodeService) Update(ctx context.Context, vsn string, in UpdateNodeInput) (*model.Node, error) {
	n, err := s.Get(ctx, vsn)
	if err != nil {
		return nil, err
	}
	fields := map[string]any{}
	if in.MAC != nil {
		// an empty MAC clears it so several nodes may have none
		fields["mac"] = blankToNil(in.MAC)
	}
	setBool(fields, "files_public", in.FilesPublic)
	if in.CommissioningDate != nil {
		fields["commissioning_date"] = *in.CommissioningDate
	}
	if err := s.r.Update(ctx, n, fields); err != nil {
		return nil, translate(err, "node "+vsn)
	}
	return n, nil
}

func (s *nodeService) Delete(ctx context.Context, vsn string) error {
	if vsn == "" {
		return errors.New("vsn is empty")
	}
	// memberships and the token are removed by ON DELETE CASCADE
	return translate(s.r.Delete(ctx, vsn), "node "+vsn)
}

func (s *nodeService) RotateToken(ctx context.Context, vsn string) (*model.Node, string, error) {
	n, err := s.Get(ctx, vsn)
	if err != nil {
		return nil, "", err
	}
	tok, raw, err := s.issueToken()
	if err != nil {
		return nil, "", err
	}
	if err := s.r.ReplaceToken(ctx, n.ID, tok); err != nil {
		return nil, "", translate(err, "node "+vsn)
	}
	telemetry.RecordNodeToken(ctx, "rotate")
	s.log.Sugar().Infow("node token rotated", "vsn", vsn)
	return n, raw, nil
}

func (s *nodeService) Authenticate(ctx context.Context, raw string) (*model.Node, error) {
	n, err := s.authenticate(ctx, raw)
	telemetry.RecordNodeAuth(ctx, err == nil)
	return n, err
}

func (s *nodeService) authenticate(ctx context.Context, raw string) (*model.Node, error) {
	secret, ok := tokens.ParseToken(raw, s.cfg.Root.NodeTokenPrefix)
	if !ok {
		return nil, ErrInvalidToken
	}
	lookup := tokens.HMAC256Hex(s.cfg.Root.SecretPepper, secret)

	n, err := s.r.GetByTokenLookup(ctx, lookup)
	if err != nil {
		if errors.Is(translate(err, "node token"), ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if s.cfg.Root.EnableArgon2Verification {
		if n.Token == nil {
			return nil, ErrInvalidToken
		}
		pass, err := secrets.VerifySecret(secret, s.cfg.Root.SecretPepper, n.Token.SecretKeyHashPHC)
		if err != nil || !pass {
			return nil, ErrInvalidToken
		}
	}
	return n, nil
}

func (s *nodeService) Memberships(ctx context.Context, n *model.Node) ([]*model.NodeMembership, error) {
	ms, err := s.mr.ListByNode(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range ms {
		m.Node = n
	}
	return ms, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
