package model

import (
	"time"

	"github.com/waggle-sensor/facilities/internal/pkg/formschema"
	"gorm.io/datatypes"
)

// NodeData is the inventory record of a node: what it is built from and where it is.
type NodeData struct {
	ID     uint     `gorm:"primaryKey" json:"id"`
	VSN    string   `gorm:"column:vsn;type:varchar(30);not null;uniqueIndex" json:"vsn"`
	Name   string   `gorm:"type:varchar(30);not null;default:''" json:"name"`
	GPSLat *float64 `gorm:"column:gps_lat" json:"gps_lat"`
	GPSLon *float64 `gorm:"column:gps_lon" json:"gps_lon"`

	Tags      []Tag        `gorm:"many2many:node_data_tags;constraint:OnDelete:CASCADE;" json:"tags"`
	Computes  []Compute    `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"computes"`
	Resources []Resource   `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"resources"`
	Sensors   []NodeSensor `gorm:"foreignKey:NodeID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"sensors"`

	CreatedAt time.Time `gorm:"autoCreateTime;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (NodeData) TableName() string { return "node_data" }

// HardwareSpec holds the columns shared by every hardware catalog.
type HardwareSpec struct {
	Hardware     string `gorm:"type:varchar(100);not null" json:"hardware"`
	HWModel      string `gorm:"column:hw_model;type:varchar(30);not null;default:''" json:"hw_model"`
	HWVersion    string `gorm:"column:hw_version;type:varchar(30);not null;default:''" json:"hw_version"`
	SWVersion    string `gorm:"column:sw_version;type:varchar(30);not null;default:''" json:"sw_version"`
	Manufacturer string `gorm:"type:varchar(255);not null;default:''" json:"manufacturer"`
	Datasheet    string `gorm:"type:varchar(255);not null;default:''" json:"datasheet"`
	Description  string `gorm:"type:text;not null;default:''" json:"description"`
}

type ComputeHardware struct {
	ID uint `gorm:"primaryKey" json:"id"`
	HardwareSpec
	CPU       string `gorm:"column:cpu;type:varchar(30);not null;default:''" json:"cpu"`
	CPURAM    string `gorm:"column:cpu_ram;type:varchar(30);not null;default:''" json:"cpu_ram"`
	GPURAM    string `gorm:"column:gpu_ram;type:varchar(30);not null;default:''" json:"gpu_ram"`
	SharedRAM bool   `gorm:"column:shared_ram;not null;default:false" json:"shared_ram"`

	Capabilities []Capability `gorm:"many2many:compute_hardware_capabilities;constraint:OnDelete:CASCADE;" json:"capabilities"`
}

func (ComputeHardware) TableName() string { return "compute_hardware" }

type ResourceHardware struct {
	ID uint `gorm:"primaryKey" json:"id"`
	HardwareSpec

	Capabilities []Capability `gorm:"many2many:resource_hardware_capabilities;constraint:OnDelete:CASCADE;" json:"capabilities"`
}

func (ResourceHardware) TableName() string { return "resource_hardware" }

type SensorHardware struct {
	ID uint `gorm:"primaryKey" json:"id"`
	HardwareSpec

	Capabilities []Capability `gorm:"many2many:sensor_hardware_capabilities;constraint:OnDelete:CASCADE;" json:"capabilities"`
}

func (SensorHardware) TableName() string { return "sensor_hardware" }

type Capability struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	Capability string `gorm:"type:varchar(30);not null;uniqueIndex" json:"capability"`
}

func (Capability) TableName() string { return "capabilities" }

type ComputeZone string

const (
	ZoneCore      ComputeZone = "core"
	ZoneAgent     ComputeZone = "agent"
	ZoneShield    ComputeZone = "shield"
	ZoneDetector  ComputeZone = "detector"
	ZoneEnclosure ComputeZone = "enclosure"
)

func (ComputeZone) Choices() []formschema.Choice {
	return []formschema.Choice{
		{Value: string(ZoneCore), Label: "core"},
		{Value: string(ZoneAgent), Label: "agent"},
		{Value: string(ZoneShield), Label: "shield"},
		{Value: string(ZoneDetector), Label: "detector (deprecated! use enclosure instead!)"},
		{Value: string(ZoneEnclosure), Label: "enclosure"},
	}
}

func (z ComputeZone) Valid() bool {
	return formschema.HasChoice(z, string(z))
}

type Compute struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	NodeID     uint         `gorm:"not null;index" json:"-"`
	HardwareID uint         `gorm:"not null;index" json:"-"`
	Name       string       `gorm:"type:varchar(30);not null;default:''" json:"name"`
	SerialNo   string       `gorm:"type:varchar(30);not null;default:''" json:"serial_no"`
	Zone       *ComputeZone `gorm:"type:varchar(30)" json:"zone"`

	Hardware *ComputeHardware `gorm:"foreignKey:HardwareID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"hardware"`
	Sensors  []ComputeSensor  `gorm:"foreignKey:ScopeID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"sensors"`
}

func (Compute) TableName() string { return "computes" }

// SensorSpec holds the columns shared by node and compute sensors.
type SensorSpec struct {
	HardwareID uint   `gorm:"not null;index" json:"-"`
	Name       string `gorm:"type:varchar(30);not null;default:''" json:"name"`
	SerialNo   string `gorm:"type:varchar(30);not null;default:''" json:"serial_no"`
	URI        string `gorm:"column:uri;type:varchar(256);not null;default:''" json:"uri"`
}

type NodeSensor struct {
	ID uint `gorm:"primaryKey" json:"id"`
	SensorSpec
	NodeID uint   `gorm:"not null;index" json:"-"`
	Scope  string `gorm:"type:varchar(30);not null;default:'global'" json:"scope"`

	Hardware *SensorHardware `gorm:"foreignKey:HardwareID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"hardware"`
	Labels   []Label         `gorm:"many2many:node_sensor_labels;constraint:OnDelete:CASCADE;" json:"labels"`
}

func (NodeSensor) TableName() string { return "node_sensors" }

type ComputeSensor struct {
	ID uint `gorm:"primaryKey" json:"id"`
	SensorSpec
	ScopeID uint `gorm:"not null;index" json:"-"`

	Hardware *SensorHardware `gorm:"foreignKey:HardwareID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"hardware"`
	Labels   []Label         `gorm:"many2many:compute_sensor_labels;constraint:OnDelete:CASCADE;" json:"labels"`
}

func (ComputeSensor) TableName() string { return "compute_sensors" }

type Resource struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	NodeID     uint   `gorm:"not null;index" json:"-"`
	HardwareID uint   `gorm:"not null;index" json:"-"`
	Name       string `gorm:"type:varchar(30);not null;default:''" json:"name"`

	Hardware *ResourceHardware `gorm:"foreignKey:HardwareID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"hardware"`
}

func (Resource) TableName() string { return "resources" }

type Tag struct {
	ID  uint   `gorm:"primaryKey" json:"-"`
	Tag string `gorm:"type:varchar(30);not null;uniqueIndex" json:"tag"`
}

func (Tag) TableName() string { return "tags" }

type Label struct {
	ID    uint   `gorm:"primaryKey" json:"-"`
	Label string `gorm:"type:varchar(30);not null;uniqueIndex" json:"label"`
}

func (Label) TableName() string { return "labels" }

// ManifestPublication records the last upload of a node manifest to the object store.
type ManifestPublication struct {
	ID         uint              `gorm:"primaryKey" json:"-"`
	NodeDataID uint              `gorm:"not null;uniqueIndex" json:"-"`
	ObjectKey  string            `gorm:"type:text;not null" json:"object_key"`
	ETag       string            `gorm:"column:etag;type:text;not null;default:''" json:"etag"`
	Summary    datatypes.JSONMap `gorm:"type:jsonb" swaggertype:"object" json:"summary"`

	PublishedAt time.Time `gorm:"autoUpdateTime;not null;default:CURRENT_TIMESTAMP" json:"published_at"`

	NodeData *NodeData `gorm:"foreignKey:NodeDataID;references:ID;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;" json:"-"`
}

func (ManifestPublication) TableName() string { return "manifest_publications" }
