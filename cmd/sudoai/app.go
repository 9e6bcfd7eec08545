package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	sudoai "github.com/Sukudo1234/sudoai-mvp"
	audithook "github.com/Sukudo1234/sudoai-mvp/audit_hook"
	"github.com/Sukudo1234/sudoai-mvp/backend"
	"github.com/Sukudo1234/sudoai-mvp/backend/batch"
	"github.com/Sukudo1234/sudoai-mvp/backend/broker"
	"github.com/Sukudo1234/sudoai-mvp/engine"
	"github.com/Sukudo1234/sudoai-mvp/hook"
	"github.com/Sukudo1234/sudoai-mvp/job"
	relayhook "github.com/Sukudo1234/sudoai-mvp/relay_hook"
	bunstore "github.com/Sukudo1234/sudoai-mvp/store/bun"
	"github.com/Sukudo1234/sudoai-mvp/store/memory"
)

// app holds the wired process-wide collaborators. Everything is built
// once per command invocation and passed by reference; there are no
// package-level singletons.
type app struct {
	cfg    sudoai.Config
	logger *slog.Logger
	jobs   job.Store
	be     backend.Backend
	eng    *engine.Engine

	closeDB func() error
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := sudoai.Load()
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	jobs, closeDB, err := buildJobStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	be, err := buildBackend(ctx, cfg, jobs, logger)
	if err != nil {
		_ = closeDB()
		return nil, err
	}

	engOpts := []engine.Option{engine.WithLogger(logger)}
	engOpts = append(engOpts, hookOptions(cfg, logger)...)
	eng := engine.New(be, jobs, engOpts...)

	return &app{
		cfg:     cfg,
		logger:  logger,
		jobs:    jobs,
		be:      be,
		eng:     eng,
		closeDB: closeDB,
	}, nil
}

// configuredHooks builds the optional lifecycle hooks. The engine and
// the worker pipeline both register the same set so every lifecycle
// event reaches them regardless of which process emits it.
func configuredHooks(cfg sudoai.Config, logger *slog.Logger) []hook.Hook {
	var hooks []hook.Hook

	if cfg.Hooks.AuditLog {
		recorder := audithook.RecorderFunc(func(_ context.Context, evt *audithook.AuditEvent) error {
			logger.Info("audit",
				"action", evt.Action,
				"resource", evt.Resource,
				"resource_id", evt.ResourceID,
				"outcome", evt.Outcome,
				"severity", evt.Severity,
				"metadata", evt.Metadata,
			)
			return nil
		})
		hooks = append(hooks, audithook.New(recorder, audithook.WithLogger(logger)))
	}

	if cfg.Hooks.WebhookURL != "" {
		hooks = append(hooks, relayhook.New(cfg.Hooks.WebhookURL, relayhook.WithLogger(logger)))
	}

	return hooks
}

func hookOptions(cfg sudoai.Config, logger *slog.Logger) []engine.Option {
	var opts []engine.Option
	for _, h := range configuredHooks(cfg, logger) {
		opts = append(opts, engine.WithHook(h))
	}
	return opts
}

// buildJobStore selects the record store: PostgreSQL when a DSN is
// configured, the in-memory store otherwise.
func buildJobStore(ctx context.Context, cfg sudoai.Config, logger *slog.Logger) (job.Store, func() error, error) {
	if cfg.Database.DSN == "" {
		return memory.New(), func() error { return nil }, nil
	}

	st, db, err := bunstore.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, bunstore.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return st, db.Close, nil
}

// buildBackend constructs the dispatch backend for the configured
// environment. The branch lives here and only here.
func buildBackend(ctx context.Context, cfg sudoai.Config, jobs job.Store, logger *slog.Logger) (backend.Backend, error) {
	switch cfg.Environment {
	case sudoai.EnvProduction:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Storage.Region))
		if err != nil {
			return nil, fmt.Errorf("%w: load aws config: %v", sudoai.ErrInvalidConfig, err)
		}
		return batch.New(awsCfg, cfg.Queue.SQSQueueURL, cfg.Batch, jobs, cfg.Queue.MaxRetries,
			batch.WithLogger(logger))
	default:
		return broker.New(ctx, cfg.Queue.RedisURL, jobs, cfg.Queue.MaxRetries,
			broker.WithLogger(logger))
	}
}

func (a *app) Close(ctx context.Context) {
	if err := a.eng.Close(ctx); err != nil {
		a.logger.Warn("engine close failed", "error", err)
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil {
			a.logger.Warn("database close failed", "error", err)
		}
	}
}
