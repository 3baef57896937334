package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/config"
	"github.com/arqioly/arqioly/pkg/database"
	"github.com/arqioly/arqioly/pkg/events"
	"github.com/arqioly/arqioly/pkg/export"
	"github.com/arqioly/arqioly/pkg/kv"
	"github.com/arqioly/arqioly/pkg/logging"
	"github.com/arqioly/arqioly/pkg/repositories"
)

// app holds the process-wide dependencies every command needs.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     kv.Store
	repos     *repositories.Repositories
	publisher events.Publisher

	closers []func()
}

// newApp builds the logger, opens the configured store and connects the
// event publisher. Callers must Close the app.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, syncLogger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, syncLogger)

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.repos = repositories.New(a.store)

	if cfg.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.SubjectPrefix)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = pub
		a.closers = append(a.closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("Failed to close NATS publisher", zap.Error(err))
			}
		})
		logger.Info("Publishing events to NATS", zap.String("subject_prefix", cfg.Events.SubjectPrefix))
	} else {
		a.publisher = &events.NoopPublisher{}
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		client, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.store = kv.NewRedisStore(client, cfg.Store.KeyPrefix)
		a.logger.Info("Using Redis store",
			zap.String("addr", cfg.Redis.Addr()),
			zap.String("key_prefix", cfg.Store.KeyPrefix))

	case config.StoreBackendPostgres:
		if err := database.MigrateURL(cfg.Database.MigrationURL(), cfg.Database.MigrationsPath, a.logger); err != nil {
			return err
		}
		db, err := database.NewConnection(ctx, database.ConfigFrom(&cfg.Database))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.store = kv.NewPostgresStore(db.Pool)
		a.logger.Info("Using Postgres store",
			zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())))

	default:
		a.store = kv.NewMemoryStore()
		a.logger.Info("Using in-memory store; data is lost on exit")
	}
	return nil
}

// archiver returns the S3 archiver, or nil when no bucket is configured.
func (a *app) archiver(ctx context.Context) (export.Archiver, error) {
	if !a.cfg.Export.IsAvailable() {
		return nil, nil
	}
	s3, err := export.NewS3Archiver(ctx, a.cfg.Export, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to configure export archive: %w", err)
	}
	return s3, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("Failed to close store", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
