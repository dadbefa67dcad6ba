package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"airstrip/internal/config"
	"airstrip/internal/db"
	"airstrip/internal/engine"
	"airstrip/internal/events"
	"airstrip/internal/kv"
	"airstrip/internal/metrics"
	"airstrip/internal/migrate"
	"airstrip/internal/snapshot"
)

// App owns every long-lived dependency of a process.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     kv.Store
	Engine    *engine.Engine
	Metrics   *metrics.Prometheus
	Publisher events.Publisher
}

// Open connects the configured store and event publisher and builds the
// engine on top of them.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config not loaded")
	}
	if logger == nil {
		logger = slog.Default()
	}
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	var pub events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		pub = np
	}
	m := metrics.NewPrometheus()

	eng := engine.New(store)
	eng.Publisher = pub
	eng.Metrics = m
	eng.Logger = logger

	logger.Debug("app opened", "backend", cfg.Storage.Backend, "nats", cfg.NATS.URL != "")
	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Engine:    eng,
		Metrics:   m,
		Publisher: pub,
	}, nil
}

// OpenStore opens and, for SQL backends, migrates the byte store.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (kv.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return kv.NewMemoryStore(), nil
	case config.BackendSQLite:
		conn, err := db.Open(db.Config{Path: cfg.Path})
		if err != nil {
			return nil, err
		}
		if err := migrate.Migrate(conn, migrate.SQLite); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return kv.NewSQLStore(conn, kv.DialectSQLite), nil
	case config.BackendPostgres:
		conn, err := db.OpenPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := migrate.Migrate(conn, migrate.Postgres); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return kv.NewSQLStore(conn, kv.DialectPostgres), nil
	case config.BackendRedis:
		return kv.NewRedisStore(cfg.RedisAddr, cfg.RedisPrefix)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// SnapshotSink returns the S3 sink when a bucket is configured and the
// snapshot directory otherwise.
func (a *App) SnapshotSink(ctx context.Context) (snapshot.Sink, error) {
	sc := a.Config.Snapshot
	if sc.S3Bucket != "" {
		return snapshot.NewS3Sink(ctx, snapshot.S3Config{
			Bucket:    sc.S3Bucket,
			Prefix:    sc.S3Prefix,
			Region:    sc.S3Region,
			Endpoint:  sc.S3Endpoint,
			PathStyle: sc.S3PathStyle,
		})
	}
	return snapshot.DirSink{Dir: sc.Dir}, nil
}

// ExportSnapshot writes the whole store to the snapshot sink and returns
// the object name and the number of entries written.
func (a *App) ExportSnapshot(ctx context.Context, now time.Time) (string, int, error) {
	sink, err := a.SnapshotSink(ctx)
	if err != nil {
		return "", 0, err
	}
	snap, err := snapshot.Export(ctx, a.Store, now)
	if err != nil {
		return "", 0, err
	}
	data, err := snapshot.Encode(snap)
	if err != nil {
		return "", 0, err
	}
	name := snapshot.Name(now)
	if err := sink.Write(ctx, name, data); err != nil {
		return "", 0, err
	}
	a.Logger.Info("snapshot exported", "name", name, "entries", snap.Count())
	return name, snap.Count(), nil
}

// ImportSnapshot loads a named snapshot from the sink into the store.
func (a *App) ImportSnapshot(ctx context.Context, name string, merge bool) (int, error) {
	sink, err := a.SnapshotSink(ctx)
	if err != nil {
		return 0, err
	}
	data, err := sink.Read(ctx, name)
	if err != nil {
		return 0, err
	}
	snap, err := snapshot.Decode(data)
	if err != nil {
		return 0, err
	}
	if err := snapshot.Import(ctx, a.Store, snap, snapshot.ImportOptions{Merge: merge}); err != nil {
		return 0, err
	}
	a.Logger.Info("snapshot imported", "name", name, "entries", snap.Count(), "merge", merge)
	return snap.Count(), nil
}

func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
