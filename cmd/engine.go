package cmd

import (
	"context"
	"fmt"

	"resource-store/core/cache"
	"resource-store/core/config"
	"resource-store/core/database"
	"resource-store/core/dialect"
	"resource-store/core/logger"
	"resource-store/core/metrics"
	"resource-store/core/payload"
	"resource-store/core/schema"
	"resource-store/core/storage"
	"resource-store/core/txn"
	"resource-store/feature/dictionary"
	"resource-store/feature/erase"
	"resource-store/feature/extract"
	"resource-store/feature/integrity"
	"resource-store/feature/parameter"
	"resource-store/feature/reference"
	"resource-store/feature/reindex"
	"resource-store/feature/resource"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// engine is the wired persistence stack shared by the commands.
type engine struct {
	db        *gorm.DB
	registry  *prometheus.Registry
	resources *resource.Service
	reindexer *reindex.Service
	eraser    *erase.Service
	integrity *integrity.Service
}

func newEngine(ctx context.Context, cfg *config.Config, logg *zap.Logger) (*engine, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	return buildEngine(ctx, cfg, db, logg)
}

// buildEngine wires the stack over db. db is closed when wiring fails.
func buildEngine(ctx context.Context, cfg *config.Config, db *gorm.DB, logg *zap.Logger) (eng *engine, err error) {
	defer func() {
		if err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
		}
	}()

	d, err := dialect.ForDB(db)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := schema.Bootstrap(ctx, db, d, cfg.Database.ResourceTypes); err != nil {
			return nil, fmt.Errorf("bootstrap schema: %w", err)
		}
	} else if err := schema.Verify(db, cfg.Database.ResourceTypes); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	ids, err := cache.NewIdentity(cfg.Cache, m)
	if err != nil {
		return nil, err
	}
	resolver := dictionary.NewResolver(ids, logg)
	if cfg.Cache.Prefill {
		if err := resolver.Prefill(ctx, db); err != nil {
			return nil, fmt.Errorf("prefill caches: %w", err)
		}
	}

	var client storage.Client
	if cfg.Storage.Enabled {
		if client, err = storage.NewClient(cfg.Storage); err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
			return nil, err
		}
	}
	payloads := payload.NewStore(cfg.Payload, client, cfg.Storage.Bucket, logg)

	tm := txn.NewManager(db, d, ids, logg, txn.WithRetries(cfg.Engine.DeadlockRetries, cfg.Engine.RetryBackoff))
	params := parameter.NewDAO(resolver, reference.NewDAO(resolver, logg))
	resources := resource.NewDAO(resolver, params, logg)
	extractor := extract.MetaExtractor{}

	reindexDAO := reindex.NewDAO(resources, logg,
		reindex.WithOffsetRange(cfg.Engine.ReindexOffsetRange),
		reindex.WithMetrics(m),
	)
	eraseDAO := erase.NewDAO(resolver, params, d, cfg.Engine.EraseUseProcedure, logg)

	logg.Info("Persistence engine ready",
		zap.String("dialect", d.Name),
		zap.String("erase_strategy", eraseDAO.Strategy()),
		zap.Bool("payload_offload", client != nil),
	)
	return &engine{
		db:        db,
		registry:  reg,
		resources: resource.NewService(tm, resources, payloads, extractor, m, logg),
		reindexer: reindex.NewService(tm, reindexDAO, resources, payloads, extractor, cfg.Engine.ReindexWorkers, m, logg),
		eraser:    erase.NewService(tm, eraseDAO, payloads, m, logg),
		integrity: integrity.NewService(cfg.Integrity, db, client, cfg.Storage.Bucket, payloads, cfg.Database.ResourceTypes, logg),
	}, nil
}

func (e *engine) Close() error {
	sqlDB, err := e.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// loadRuntime reads the configuration and builds the logger.
func loadRuntime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	logg, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	return logg, nil
}
