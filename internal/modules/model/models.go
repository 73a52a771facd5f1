package model

// All lists every persisted model in dependency order for AutoMigrate.
func All() []any {
	return []any{
		&User{},
		&Node{},
		&NodeToken{},
		&Project{},
		&UserMembership{},
		&NodeMembership{},
		&ScienceField{},
		&FundingSource{},
		&AllocationRequest{},
		&ComputeHardware{},
		&ResourceHardware{},
		&SensorHardware{},
		&Capability{},
		&Tag{},
		&Label{},
		&NodeData{},
		&Compute{},
		&NodeSensor{},
		&ComputeSensor{},
		&Resource{},
		&ManifestPublication{},
	}
}
