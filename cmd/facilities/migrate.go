package main

import (
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"github.com/waggle-sensor/facilities/internal/bootstrap"
	"github.com/waggle-sensor/facilities/internal/modules/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			inj := bootstrap.BuildContainer()
			defer bootstrap.Close(inj)

			d, err := do.Invoke[*gorm.DB](inj)
			if err != nil {
				return err
			}
			if err := bootstrap.Migrate(d); err != nil {
				return err
			}
			do.MustInvoke[*zap.Logger](inj).Sugar().Infow("schema migrated")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the bundled science fields that are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			inj := bootstrap.BuildContainer()
			defer bootstrap.Close(inj)

			catalog, err := do.Invoke[service.CatalogService](inj)
			if err != nil {
				return err
			}
			return bootstrap.SeedCatalog(cmd.Context(), catalog, do.MustInvoke[*zap.Logger](inj))
		},
	}
}
