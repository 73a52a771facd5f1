package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/waggle-sensor/facilities/internal/config"
	"github.com/waggle-sensor/facilities/internal/infra/blob"
	"github.com/waggle-sensor/facilities/internal/infra/cache"
	"github.com/waggle-sensor/facilities/internal/infra/db"
	"github.com/waggle-sensor/facilities/internal/infra/logger"
	mq "github.com/waggle-sensor/facilities/internal/infra/queue"
	"github.com/waggle-sensor/facilities/internal/modules/handler"
	"github.com/waggle-sensor/facilities/internal/modules/model"
	"github.com/waggle-sensor/facilities/internal/modules/repo"
	"github.com/waggle-sensor/facilities/internal/modules/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Migrate creates or updates every facilities table.
func Migrate(d *gorm.DB) error {
	return d.AutoMigrate(model.All()...)
}

// BuildContainer registers every provider lazily. Postgres is required; redis, rabbitmq
// and the object store degrade to nil dependencies when they cannot be reached.
func BuildContainer() *do.Injector {
	inj := do.New()
	do.ProvideValue(inj, &closers{})

	// config
	do.Provide(inj, func(i *do.Injector) (*config.Config, error) {
		return config.Load()
	})

	// logger
	do.Provide(inj, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return logger.NewForEnv(cfg.App.Env, cfg.Log.Level)
	})

	// DB
	do.Provide(inj, func(i *do.Injector) (*gorm.DB, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		d, err := db.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Telemetry.Enabled {
			if err := db.RegisterOpenTelemetryPlugin(d); err != nil {
				log.Sugar().Warnw("gorm tracing disabled", "err", err)
			}
		}
		sqlDB, err := d.DB()
		if err != nil {
			return nil, err
		}
		do.MustInvoke[*closers](i).add(sqlDB.Close)
		if cfg.Database.AutoMigrate {
			if err := Migrate(d); err != nil {
				return nil, err
			}
		}
		return d, nil
	})

	// Redis
	do.Provide(inj, func(i *do.Injector) (*redis.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		rdb, err := cache.New(cfg)
		if err != nil {
			return nil, err
		}
		if cfg.Telemetry.Enabled {
			_ = cache.RegisterOpenTelemetryPlugin(rdb)
		}
		do.MustInvoke[*closers](i).add(func() error { return cache.Close(rdb) })
		return rdb, nil
	})
	do.Provide(inj, func(i *do.Injector) (service.JSONCache, error) {
		cfg := do.MustInvoke[*config.Config](i)
		rdb, err := do.Invoke[*redis.Client](i)
		if err != nil {
			do.MustInvoke[*zap.Logger](i).Sugar().Warnw("redis unavailable, form cache disabled", "err", err)
			return nil, nil
		}
		return cache.NewJSONCache(rdb, time.Duration(cfg.Cache.FormTTLSec)*time.Second), nil
	})

	// RabbitMQ DialFunc for connection and reconnection
	do.Provide(inj, func(i *do.Injector) (mq.DialFunc, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return func() (*amqp.Connection, error) {
			url := cfg.RabbitMQ.URL
			if cfg.RabbitMQ.EnableTLS || strings.HasPrefix(url, "amqps://") {
				url = strings.Replace(url, "amqp://", "amqps://", 1)
				return amqp.DialTLS(url, &tls.Config{MinVersion: tls.VersionTLS12})
			}
			return amqp.Dial(url)
		}, nil
	})
	do.Provide(inj, func(i *do.Injector) (*mq.Publisher, error) {
		cfg := do.MustInvoke[*config.Config](i)
		log := do.MustInvoke[*zap.Logger](i)
		dial := do.MustInvoke[mq.DialFunc](i)
		conn, err := dial()
		if err != nil {
			return nil, err
		}
		pub, err := mq.NewPublisher(conn, log, cfg, dial)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		do.MustInvoke[*closers](i).add(pub.Close)
		return pub, nil
	})
	do.Provide(inj, func(i *do.Injector) (service.EventPublisher, error) {
		pub, err := do.Invoke[*mq.Publisher](i)
		if err != nil {
			do.MustInvoke[*zap.Logger](i).Sugar().Warnw("rabbitmq unavailable, events disabled", "err", err)
			return nil, nil
		}
		return pub, nil
	})

	// S3
	do.Provide(inj, func(i *do.Injector) (service.BlobStore, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.S3.Bucket == "" {
			return nil, nil
		}
		s3, err := blob.NewS3(context.Background(), cfg)
		if err != nil {
			do.MustInvoke[*zap.Logger](i).Sugar().Warnw("object store unavailable, manifest publishing disabled", "err", err)
			return nil, nil
		}
		return s3, nil
	})

	// Repo
	do.Provide(inj, func(i *do.Injector) (repo.UserRepo, error) {
		return repo.NewUserRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.NodeRepo, error) {
		return repo.NewNodeRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ProjectRepo, error) {
		return repo.NewProjectRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.MembershipRepo, error) {
		return repo.NewMembershipRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ScienceFieldRepo, error) {
		return repo.NewScienceFieldRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.FundingSourceRepo, error) {
		return repo.NewFundingSourceRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.AllocationRequestRepo, error) {
		return repo.NewAllocationRequestRepo(do.MustInvoke[*gorm.DB](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (repo.ManifestRepo, error) {
		return repo.NewManifestRepo(do.MustInvoke[*gorm.DB](i)), nil
	})

	// Service
	do.Provide(inj, func(i *do.Injector) (service.AllocationFormService, error) {
		return service.NewAllocationFormService(
			do.MustInvoke[repo.ScienceFieldRepo](i),
			do.MustInvoke[repo.FundingSourceRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[service.JSONCache](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.UserService, error) {
		return service.NewUserService(
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[repo.MembershipRepo](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.NodeService, error) {
		return service.NewNodeService(
			do.MustInvoke[repo.NodeRepo](i),
			do.MustInvoke[repo.MembershipRepo](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[service.EventPublisher](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ProjectService, error) {
		return service.NewProjectService(
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.MembershipRepo](i),
			do.MustInvoke[repo.UserRepo](i),
			do.MustInvoke[repo.NodeRepo](i),
			do.MustInvoke[service.AllocationFormService](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.CatalogService, error) {
		return service.NewCatalogService(
			do.MustInvoke[repo.ScienceFieldRepo](i),
			do.MustInvoke[repo.FundingSourceRepo](i),
			do.MustInvoke[service.AllocationFormService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.AllocationRequestService, error) {
		return service.NewAllocationRequestService(
			do.MustInvoke[repo.AllocationRequestRepo](i),
			do.MustInvoke[repo.ProjectRepo](i),
			do.MustInvoke[repo.ScienceFieldRepo](i),
			do.MustInvoke[repo.FundingSourceRepo](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[service.EventPublisher](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (service.ManifestService, error) {
		return service.NewManifestService(
			do.MustInvoke[repo.ManifestRepo](i),
			do.MustInvoke[service.BlobStore](i),
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[service.EventPublisher](i),
			do.MustInvoke[*zap.Logger](i),
		), nil
	})

	// Handler
	do.Provide(inj, func(i *do.Injector) (*handler.UserHandler, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return handler.NewUserHandler(do.MustInvoke[service.UserService](i), cfg.App.BaseURL), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.NodeHandler, error) {
		return handler.NewNodeHandler(do.MustInvoke[service.NodeService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ProjectHandler, error) {
		return handler.NewProjectHandler(do.MustInvoke[service.ProjectService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.CatalogHandler, error) {
		return handler.NewCatalogHandler(do.MustInvoke[service.CatalogService](i)), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.AllocationRequestHandler, error) {
		return handler.NewAllocationRequestHandler(
			do.MustInvoke[service.AllocationRequestService](i),
			do.MustInvoke[service.AllocationFormService](i),
		), nil
	})
	do.Provide(inj, func(i *do.Injector) (*handler.ManifestHandler, error) {
		return handler.NewManifestHandler(do.MustInvoke[service.ManifestService](i)), nil
	})
	return inj
}

// closers collects the Close funcs of connections the providers actually opened.
type closers struct {
	mu  sync.Mutex
	fns []func() error
}

func (c *closers) add(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

// Close releases the opened connections in reverse order.
func Close(inj *do.Injector) error {
	c := do.MustInvoke[*closers](inj)
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for i := len(c.fns) - 1; i >= 0; i-- {
		errs = append(errs, c.fns[i]())
	}
	c.fns = nil
	return errors.Join(errs...)
}
