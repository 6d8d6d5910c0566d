package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/brandcount/internal/application"
	appextract "github.com/bryanwahyu/brandcount/internal/application/extraction"
	"github.com/bryanwahyu/brandcount/internal/config"
	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
	anthropicclient "github.com/bryanwahyu/brandcount/internal/infra/ai/anthropic"
	openaiclient "github.com/bryanwahyu/brandcount/internal/infra/ai/openai"
	"github.com/bryanwahyu/brandcount/internal/infra/cache"
	"github.com/bryanwahyu/brandcount/internal/infra/db"
	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlstore"
	"github.com/bryanwahyu/brandcount/internal/infra/storage"
	"github.com/bryanwahyu/brandcount/internal/middleware"
)

// app holds the wired dependencies of one process.
type app struct {
	db      *sql.DB
	dialect sqlstore.Dialect
	svc     *appextract.Service
	metrics  *middleware.Metrics
	checkers map[string]middleware.HealthChecker
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func openDB(ctx context.Context, cfg *config.Config) (*sql.DB, sqlstore.Dialect, error) {
	return db.Open(ctx, cfg.DatabaseURL, db.Pool{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, withMetrics bool) (*app, error) {
	conn, dialect, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{
		db:       conn,
		dialect:  dialect,
		checkers: map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: conn}},
	}
	a.closers = append(a.closers, conn.Close)
	logger.Info("database connected", zap.String("dialect", dialect.Name))

	// init repo + service
	repo := sqlstore.NewRepository(conn, dialect, logger)
	svc := &appextract.Service{
		Repo:     repo,
		Failures: repo,
		Model:    newModelClient(cfg),
		Clock:    application.SystemClock{},
		Logger:   logger.Named("extract"),
	}

	switch cfg.Cache.Driver {
	case "memory":
		svc.Cache = cache.NewMemory(cfg.Cache.TTL)
	case "redis":
		rc, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rc.Close)
		a.checkers["cache"] = middleware.CheckFunc(rc.Ping)
		svc.Cache = rc
	}

	// init minio (opsional)
	if cfg.Archive.Enabled {
		store, err := storage.New(ctx,
			cfg.Archive.Endpoint,
			cfg.Archive.Region,
			cfg.Archive.BucketName,
			cfg.Archive.AccessKey,
			cfg.Archive.SecretKey,
			cfg.Archive.UseSSL,
		)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		svc.Archive = store
	}

	if withMetrics {
		m, err := middleware.NewMetrics()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.metrics = m
		svc.Metrics = m
	}

	a.svc = svc
	return a, nil
}

func newModelClient(cfg *config.Config) domain.ModelClient {
	switch cfg.Model.Provider {
	case "anthropic":
		return anthropicclient.NewClient(anthropicclient.Options{
			APIKey:    cfg.ModelAPIKey,
			BaseURL:   cfg.Model.BaseURL,
			Model:     cfg.Model.Name,
			MaxTokens: cfg.Model.MaxTokens,
			Timeout:   cfg.Model.Timeout,
		})
	default:
		return openaiclient.NewClient(openaiclient.Options{
			APIKey:    cfg.ModelAPIKey,
			BaseURL:   cfg.Model.BaseURL,
			Model:     cfg.Model.Name,
			MaxTokens: cfg.Model.MaxTokens,
			Timeout:   cfg.Model.Timeout,
		})
	}
}
