package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/infra/blob"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/telemetry"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BlobStore is satisfied by blob.S3Deps.
type BlobStore interface {
	UploadJSON(ctx context.Context, key string, v any) (string, error)
	PresignGet(ctx context.Context, key string, expire time.Duration) (string, error)
}

type ManifestService interface {
	CreateComputeHardware(ctx context.Context, in ComputeHardwareInput) (*model.ComputeHardware, error)
	CreateResourceHardware(ctx context.Context, in HardwareInput) (*model.ResourceHardware, error)
	CreateSensorHardware(ctx context.Context, in HardwareInput) (*model.SensorHardware, error)
	ListComputeHardware(ctx context.Context) ([]*model.ComputeHardware, error)
	ListResourceHardware(ctx context.Context) ([]*model.ResourceHardware, error)
	ListSensorHardware(ctx context.Context) ([]*model.SensorHardware, error)

	CreateCapabilities(ctx context.Context, names []string) ([]model.Capability, error)
	CreateTags(ctx context.Context, names []string) ([]model.Tag, error)
	CreateLabels(ctx context.Context, names []string) ([]model.Label, error)

	CreateNodeData(ctx context.Context, in NodeDataInput) (*model.NodeData, error)
	SetTags(ctx context.Context, vsn string, tags []string) (*model.NodeData, error)
	AddCompute(ctx context.Context, vsn string, in ComputeInput) (*model.Compute, error)
	AddNodeSensor(ctx context.Context, vsn string, in NodeSensorInput) (*model.NodeSensor, error)
	AddComputeSensor(ctx context.Context, vsn, compute string, in SensorInput) (*model.ComputeSensor, error)
	AddResource(ctx context.Context, vsn string, in ResourceInput) (*model.Resource, error)

	GetManifest(ctx context.Context, vsn string) (*model.NodeData, error)
	ListManifests(ctx context.Context) ([]*model.NodeData, error)
	DeleteNodeData(ctx context.Context, vsn string) error
	// Publish uploads the assembled manifest of vsn as JSON and records the upload.
	Publish(ctx context.Context, vsn string) (*PublishOutput, error)
}

type manifestService struct {
	r      repo.ManifestRepo
	store  BlobStore
	cfg    *config.Config
	events eventSink
	log    *zap.Logger
}

// NewManifestService builds the inventory service. store may be nil when no object store is configured.
func NewManifestService(r repo.ManifestRepo, store BlobStore, cfg *config.Config, pub EventPublisher, log *zap.Logger) ManifestService {
	if log == nil {
		log = zap.NewNop()
	}
	return &manifestService{
		r:      r,
		store:  store,
		cfg:    cfg,
		events: newEventSink(pub, cfg.RabbitMQ.ExchangeName.Facilities, log),
		log:    log,
	}
}

type HardwareInput struct {
	Hardware     string   `json:"hardware" binding:"required,max=100"`
	HWModel      string   `json:"hw_model" binding:"max=30"`
	HWVersion    string   `json:"hw_version" binding:"max=30"`
	SWVersion    string   `json:"sw_version" binding:"max=30"`
	Manufacturer string   `json:"manufacturer" binding:"max=255"`
	Datasheet    string   `json:"datasheet" binding:"max=255"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities" binding:"dive,max=30"`
}

type ComputeHardwareInput struct {
	HardwareInput
	CPU       string `json:"cpu" binding:"max=30"`
	CPURAM    string `json:"cpu_ram" binding:"max=30"`
	GPURAM    string `json:"gpu_ram" binding:"max=30"`
	SharedRAM bool   `json:"shared_ram"`
}

func (in HardwareInput) spec() (model.HardwareSpec, error) {
	name := strings.TrimSpace(in.Hardware)
	if name == "" {
		return model.HardwareSpec{}, fieldError("hardware", msgRequired)
	}
	return model.HardwareSpec{
		Hardware:     name,
		HWModel:      in.HWModel,
		HWVersion:    in.HWVersion,
		SWVersion:    in.SWVersion,
		Manufacturer: in.Manufacturer,
		Datasheet:    in.Datasheet,
		Description:  in.Description,
	}, nil
}

func (s *manifestService) CreateComputeHardware(ctx context.Context, in ComputeHardwareInput) (*model.ComputeHardware, error) {
	spec, err := in.spec()
	if err != nil {
		return nil, err
	}
	caps, err := s.r.GetOrCreateCapabilities(ctx, cleanNames(in.Capabilities))
	if err != nil {
		return nil, err
	}
	h := &model.ComputeHardware{
		HardwareSpec: spec,
		CPU:          in.CPU,
		CPURAM:       in.CPURAM,
		GPURAM:       in.GPURAM,
		SharedRAM:    in.SharedRAM,
		Capabilities: caps,
	}
	if err := s.r.CreateComputeHardware(ctx, h); err != nil {
		return nil, translate(err, "compute hardware "+spec.Hardware)
	}
	return h, nil
}

func (s *manifestService) CreateResourceHardware(ctx context.Context, in HardwareInput) (*model.ResourceHardware, error) {
	spec, err := in.spec()
	if err != nil {
		return nil, err
	}
	caps, err := s.r.GetOrCreateCapabilities(ctx, cleanNames(in.Capabilities))
	if err != nil {
		return nil, err
	}
	h := &model.ResourceHardware{HardwareSpec: spec, Capabilities: caps}
	if err := s.r.CreateResourceHardware(ctx, h); err != nil {
		return nil, translate(err, "resource hardware "+spec.Hardware)
	}
	return h, nil
}

func (s *manifestService) CreateSensorHardware(ctx context.Context, in HardwareInput) (*model.SensorHardware, error) {
	spec, err := in.spec()
	if err != nil {
		return nil, err
	}
	caps, err := s.r.GetOrCreateCapabilities(ctx, cleanNames(in.Capabilities))
	if err != nil {
		return nil, err
	}
	h := &model.SensorHardware{HardwareSpec: spec, Capabilities: caps}
	if err := s.r.CreateSensorHardware(ctx, h); err != nil {
		return nil, translate(err, "sensor hardware "+spec.Hardware)
	}
	return h, nil
}

func (s *manifestService) ListComputeHardware(ctx context.Context) ([]*model.ComputeHardware, error) {
	return s.r.ListComputeHardware(ctx)
}

func (s *manifestService) ListResourceHardware(ctx context.Context) ([]*model.ResourceHardware, error) {
	return s.r.ListResourceHardware(ctx)
}

func (s *manifestService) ListSensorHardware(ctx context.Context) ([]*model.SensorHardware, error) {
	return s.r.ListSensorHardware(ctx)
}

func (s *manifestService) CreateCapabilities(ctx context.Context, names []string) ([]model.Capability, error) {
	names = cleanNames(names)
	if err := checkNames("capabilities", names); err != nil {
		return nil, err
	}
	return s.r.GetOrCreateCapabilities(ctx, names)
}

func (s *manifestService) CreateTags(ctx context.Context, names []string) ([]model.Tag, error) {
	names = cleanNames(names)
	if err := checkNames("tags", names); err != nil {
		return nil, err
	}
	return s.r.GetOrCreateTags(ctx, names)
}

func (s *manifestService) CreateLabels(ctx context.Context, names []string) ([]model.Label, error) {
	names = cleanNames(names)
	if err := checkNames("labels", names); err != nil {
		return nil, err
	}
	return s.r.GetOrCreateLabels(ctx, names)
}

type NodeDataInput struct {
	VSN    string   `json:"vsn" binding:"required,max=30"`
	Name   string   `json:"name" binding:"max=30"`
	GPSLat *float64 `json:"gps_lat" binding:"omitempty,latitude"`
	GPSLon *float64 `json:"gps_lon" binding:"omitempty,longitude"`
	Tags   []string `json:"tags" binding:"dive,max=30"`
}

func (s *manifestService) CreateNodeData(ctx context.Context, in NodeDataInput) (*model.NodeData, error) {
	vsn := strings.TrimSpace(in.VSN)
	if vsn == "" {
		return nil, fieldError("vsn", msgRequired)
	}
	tags, err := s.r.GetOrCreateTags(ctx, cleanNames(in.Tags))
	if err != nil {
		return nil, err
	}
	n := &model.NodeData{
		VSN:    vsn,
		Name:   strings.TrimSpace(in.Name),
		GPSLat: in.GPSLat,
		GPSLon: in.GPSLon,
		Tags:   tags,
	}
	if err := s.r.CreateNodeData(ctx, n); err != nil {
		return nil, translate(err, "node data "+vsn)
	}
	return n, nil
}

func (s *manifestService) SetTags(ctx context.Context, vsn string, names []string) (*model.NodeData, error) {
	n, err := s.GetManifest(ctx, vsn)
	if err != nil {
		return nil, err
	}
	tags, err := s.r.GetOrCreateTags(ctx, cleanNames(names))
	if err != nil {
		return nil, err
	}
	if err := s.r.ReplaceTags(ctx, n, tags); err != nil {
		return nil, err
	}
	n.Tags = tags
	return n, nil
}

type ComputeInput struct {
	HardwareID uint    `json:"hardware_id" binding:"required"`
	Name       string  `json:"name" binding:"max=30"`
	SerialNo   string  `json:"serial_no" binding:"max=30"`
	Zone       *string `json:"zone"`
}

func (s *manifestService) AddCompute(ctx context.Context, vsn string, in ComputeInput) (*model.Compute, error) {
	var zone *model.ComputeZone
	if in.Zone != nil && *in.Zone != "" {
		z := model.ComputeZone(*in.Zone)
		if !z.Valid() {
			return nil, fieldError("zone", invalidChoice(*in.Zone))
		}
		zone = &z
	}
	n, err := s.GetManifest(ctx, vsn)
	if err != nil {
		return nil, err
	}
	c := &model.Compute{
		NodeID:     n.ID,
		HardwareID: in.HardwareID,
		Name:       in.Name,
		SerialNo:   in.SerialNo,
		Zone:       zone,
	}
	if err := s.r.AddCompute(ctx, c); err != nil {
		return nil, hardwareErr(err, in.HardwareID, "compute "+in.Name)
	}
	return c, nil
}

type SensorInput struct {
	HardwareID uint     `json:"hardware_id" binding:"required"`
	Name       string   `json:"name" binding:"max=30"`
	SerialNo   string   `json:"serial_no" binding:"max=30"`
	URI        string   `json:"uri" binding:"max=256"`
	Labels     []string `json:"labels" binding:"dive,max=30"`
}

type NodeSensorInput struct {
	SensorInput
	Scope string `json:"scope" binding:"max=30"`
}

func (s *manifestService) AddNodeSensor(ctx context.Context, vsn string, in NodeSensorInput) (*model.NodeSensor, error) {
	n, err := s.GetManifest(ctx, vsn)
	if err != nil {
		return nil, err
	}
	labels, err := s.r.GetOrCreateLabels(ctx, cleanNames(in.Labels))
	if err != nil {
		return nil, err
	}
	scope := strings.TrimSpace(in.Scope)
	if scope == "" {
		scope = "global"
	}
	sensor := &model.NodeSensor{
		SensorSpec: in.sensorSpec(),
		NodeID:     n.ID,
		Scope:      scope,
		Labels:     labels,
	}
	if err := s.r.AddNodeSensor(ctx, sensor); err != nil {
		return nil, hardwareErr(err, in.HardwareID, "sensor "+in.Name)
	}
	return sensor, nil
}

func (s *manifestService) AddComputeSensor(ctx context.Context, vsn, compute string, in SensorInput) (*model.ComputeSensor, error) {
	n, err := s.GetManifest(ctx, vsn)
	if err != nil {
		return nil, err
	}
	c, err := s.r.GetCompute(ctx, n.ID, compute)
	if err != nil {
		return nil, translate(err, "compute "+compute+" on "+vsn)
	}
	labels, err := s.r.GetOrCreateLabels(ctx, cleanNames(in.Labels))
	if err != nil {
		return nil, err
	}
	sensor := &model.ComputeSensor{
		SensorSpec: in.sensorSpec(),
		ScopeID:    c.ID,
		Labels:     labels,
	}
	if err := s.r.AddComputeSensor(ctx, sensor); err != nil {
		return nil, hardwareErr(err, in.HardwareID, "sensor "+in.Name)
	}
	return sensor, nil
}

func (in SensorInput) sensorSpec() model.SensorSpec {
	return model.SensorSpec{
		HardwareID: in.HardwareID,
		Name:       in.Name,
		SerialNo:   in.SerialNo,
		URI:        in.URI,
	}
}

type ResourceInput struct {
	HardwareID uint   `json:"hardware_id" binding:"required"`
	Name       string `json:"name" binding:"max=30"`
}

func (s *manifestService) AddResource(ctx context.Context, vsn string, in ResourceInput) (*model.Resource, error) {
	n, err := s.GetManifest(ctx, vsn)
	if err != nil {
		return nil, err
	}
	res := &model.Resource{NodeID: n.ID, HardwareID: in.HardwareID, Name: in.Name}
	if err := s.r.AddResource(ctx, res); err != nil {
		return nil, hardwareErr(err, in.HardwareID, "resource "+in.Name)
	}
	return res, nil
}

func (s *manifestService) GetManifest(ctx context.Context, vsn string) (*model.NodeData, error) {
	if vsn == "" {
		return nil, errors.New("vsn is empty")
	}
	n, err := s.r.GetNodeData(ctx, vsn)
	if err != nil {
		return nil, translate(err, "node data "+vsn)
	}
	return n, nil
}

func (s *manifestService) ListManifests(ctx context.Context) ([]*model.NodeData, error) {
	return s.r.ListNodeData(ctx)
}

func (s *manifestService) DeleteNodeData(ctx context.Context, vsn string) error {
	if vsn == "" {
		return errors.New("vsn is empty")
	}
	return translate(s.r.DeleteNodeData(ctx, vsn), "node data "+vsn)
}

type PublishOutput struct {
	VSN         string            `json:"vsn"`
	ObjectKey   string            `json:"object_key"`
	ETag        string            `json:"etag"`
	URL         string            `json:"url,omitempty"`
	Summary     datatypes.JSONMap `json:"summary" swaggertype:"object"`
	PublishedAt time.Time         `json:"published_at"`
}

type manifestPublishedEvent struct {
	VSN       string `json:"vsn"`
	ObjectKey string `json:"object_key"`
	ETag      string `json:"etag"`
}

var ErrNoObjectStore = errors.New("object store is not configured")

func (s *manifestService) Publish(ctx context.Context, vsn string) (out *PublishOutput, err error) {
	if s.store == nil {
		return nil, ErrNoObjectStore
	}
	start := time.Now()
	defer func() {
		telemetry.RecordManifestPublish(ctx, float64(time.Since(start).Milliseconds()), err == nil)
	}()

	n, err := s.GetManifest(ctx, vsn)
	if err != nil {
		return nil, err
	}

	key := blob.ObjectKey(s.cfg.S3.ManifestPrefix, n.VSN+".json")
	etag, err := s.store.UploadJSON(ctx, key, n)
	if err != nil {
		return nil, err
	}

	pub := &model.ManifestPublication{
		NodeDataID:  n.ID,
		ObjectKey:   key,
		ETag:        strings.Trim(etag, `"`),
		Summary:     manifestSummary(n),
		PublishedAt: time.Now().UTC(),
	}
	if err := s.r.SavePublication(ctx, pub); err != nil {
		return nil, err
	}

	out = &PublishOutput{
		VSN:         n.VSN,
		ObjectKey:   pub.ObjectKey,
		ETag:        pub.ETag,
		Summary:     pub.Summary,
		PublishedAt: pub.PublishedAt,
	}
	if expire := time.Duration(s.cfg.S3.PresignExpireSec) * time.Second; expire > 0 {
		url, err := s.store.PresignGet(ctx, key, expire)
		if err != nil {
			s.log.Sugar().Warnw("presign manifest", "vsn", n.VSN, "key", key, "error", err)
		} else {
			out.URL = url
		}
	}

	s.log.Sugar().Infow("manifest published", "vsn", n.VSN, "key", key)
	s.events.emit(ctx, s.cfg.RabbitMQ.RoutingKey.ManifestPublished, manifestPublishedEvent{
		VSN:       n.VSN,
		ObjectKey: key,
		ETag:      pub.ETag,
	})
	return out, nil
}

func manifestSummary(n *model.NodeData) datatypes.JSONMap {
	sensors := len(n.Sensors)
	for _, c := range n.Computes {
		sensors += len(c.Sensors)
	}
	tags := make([]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		tags = append(tags, t.Tag)
	}
	return datatypes.JSONMap{
		"name":      n.Name,
		"computes":  len(n.Computes),
		"resources": len(n.Resources),
		"sensors":   sensors,
		"tags":      tags,
	}
}

// hardwareErr reports a missing hardware row as a field error.
func hardwareErr(err error, hardwareID uint, what string) error {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fieldError("hardware_id", invalidPK(hardwareID))
	}
	return translate(err, what)
}

// cleanNames trims names and drops blanks and duplicates, keeping first occurrences.
func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func checkNames(field string, names []string) error {
	if len(names) == 0 {
		return fieldError(field, msgRequired)
	}
	for _, n := range names {
		if len(n) > 30 {
			return fieldError(field, "Ensure this field has no more than 30 characters.")
		}
	}
	return nil
}
