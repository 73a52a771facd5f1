package bootstrap

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/waggle-sensor/facilities/internal/modules/service"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed science_fields.yaml
var scienceFieldsYAML []byte

type seedFile struct {
	ScienceFields []string `yaml:"science_fields"`
}

// DefaultScienceFields returns the bundled science field names.
func DefaultScienceFields() ([]string, error) {
	var f seedFile
	if err := yaml.Unmarshal(scienceFieldsYAML, &f); err != nil {
		return nil, fmt.Errorf("parse science fields: %w", err)
	}
	return f.ScienceFields, nil
}

// SeedCatalog inserts the bundled science fields that are missing. It is safe to run repeatedly.
func SeedCatalog(ctx context.Context, catalog service.CatalogService, log *zap.Logger) error {
	names, err := DefaultScienceFields()
	if err != nil {
		return err
	}
	created, err := catalog.SeedScienceFields(ctx, names)
	if err != nil {
		return err
	}
	log.Sugar().Infow("science fields seeded", "created", created, "total", len(names))
	return nil
}
