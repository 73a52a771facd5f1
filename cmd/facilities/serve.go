package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"github.com/waggle-sensor/facilities/internal/bootstrap"
	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/modules/handler"
	"github.com/waggle-sensor/facilities/internal/modules/service"
	"github.com/waggle-sensor/facilities/internal/router"
	"github.com/waggle-sensor/facilities/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "seed the science field catalog before serving (implied by database.auto_migrate)")
	return cmd
}

func serve(ctx context.Context, seed bool) error {
	inj := bootstrap.BuildContainer()
	cfg, err := do.Invoke[*config.Config](inj)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := do.MustInvoke[*zap.Logger](inj)
	defer func() { _ = log.Sync() }()

	shutdownTelemetry, err := telemetry.Setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			log.Sugar().Warnw("telemetry shutdown", "err", err)
		}
	}()
	defer func() {
		if err := bootstrap.Close(inj); err != nil {
			log.Sugar().Warnw("close connections", "err", err)
		}
	}()

	if err := handler.RegisterValidators(); err != nil {
		return err
	}
	if cfg.App.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, err := routerDeps(inj, cfg, log)
	if err != nil {
		return err
	}
	if seed || cfg.Database.AutoMigrate {
		if err := bootstrap.SeedCatalog(ctx, do.MustInvoke[service.CatalogService](inj), log); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Sugar().Infow("listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Sugar().Infow("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// routerDeps resolves the handlers. The database is opened here, so a bad DSN fails before listening.
func routerDeps(inj *do.Injector, cfg *config.Config, log *zap.Logger) (router.RouterDeps, error) {
	nodes, err := do.Invoke[service.NodeService](inj)
	if err != nil {
		return router.RouterDeps{}, err
	}
	return router.RouterDeps{
		Config:                   cfg,
		Log:                      log,
		NodeAuth:                 nodes,
		UserHandler:              do.MustInvoke[*handler.UserHandler](inj),
		NodeHandler:              do.MustInvoke[*handler.NodeHandler](inj),
		ProjectHandler:           do.MustInvoke[*handler.ProjectHandler](inj),
		CatalogHandler:           do.MustInvoke[*handler.CatalogHandler](inj),
		AllocationRequestHandler: do.MustInvoke[*handler.AllocationRequestHandler](inj),
		ManifestHandler:          do.MustInvoke[*handler.ManifestHandler](inj),
	}, nil
}
