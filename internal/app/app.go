package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ArticleFactory/internal/capability"
	"ArticleFactory/internal/config"
	"ArticleFactory/internal/domain"
	"ArticleFactory/internal/infrastructure/artifacts"
	"ArticleFactory/internal/infrastructure/catalog"
	"ArticleFactory/internal/infrastructure/command"
	"ArticleFactory/internal/infrastructure/llm"
	"ArticleFactory/internal/infrastructure/runlog"
	"ArticleFactory/internal/infrastructure/scheduler"
	"ArticleFactory/internal/infrastructure/storage"
	"ArticleFactory/internal/infrastructure/telegram"
	"ArticleFactory/internal/infrastructure/webhook"
	"ArticleFactory/internal/keyword"
	"ArticleFactory/internal/logging"
	"ArticleFactory/internal/ports"
	"ArticleFactory/internal/quality"
	"ArticleFactory/internal/usecase"
)

// Options are startup switches that change how adapters are built.
type Options struct {
	// ValidateFacts enables the facts dimension through the catalog oracle.
	ValidateFacts bool
	// ReadOnly opens the backlog without creating or migrating it. Dry runs
	// use it so they leave no files behind.
	ReadOnly bool
}

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *storage.DB
	backlog  *storage.Backlog
	history  *storage.History
	pipeline *usecase.Pipeline
}

// New opens the backlog database and builds every adapter the pipeline needs.
// Close releases the database.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger, opts Options) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	open := storage.Open
	if opts.ReadOnly {
		open = storage.OpenReadOnly
	}
	db, err := open(ctx, cfg.Backlog.Driver, cfg.Backlog.DSN)
	if err != nil {
		return nil, err
	}
	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		db:      db,
		backlog: storage.NewBacklog(db),
		history: storage.NewHistory(db),
	}

	pipeline, err := a.buildPipeline(ctx, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.pipeline = pipeline
	return a, nil
}

func (a *Application) buildPipeline(ctx context.Context, opts Options) (*usecase.Pipeline, error) {
	cfg := a.cfg
	store := artifacts.OpenStore(cfg.Content.Dir, cfg.Content.Extension)
	thresholds := quality.Thresholds{Pass: cfg.Quality.Pass, Fail: cfg.Quality.Fail}

	scorerOpts := quality.Options{Container: cfg.Content.Container, Thresholds: thresholds}
	if opts.ValidateFacts {
		if cfg.Oracle.Endpoint == "" {
			return nil, errors.New("fact validation requested but oracle.endpoint is not set")
		}
		scorerOpts.Oracle = catalog.NewClient(cfg.Oracle)
	}

	registry := capability.NewRegistry()
	cmdLogger := a.logger.With("component", "command")
	registry.RegisterGenerator(command.NewGenerator(cfg.Generator, store, cmdLogger))
	registry.RegisterEnricher(command.NewEnricher(cfg.Enricher, store, cmdLogger))

	chat := llm.NewClient(cfg.ChatGPT)
	llmOpts := llm.Options{
		Container: cfg.Content.Container,
		SiteURL:   cfg.Content.SiteURL,
		Logger:    a.logger.With("component", "llm"),
	}
	registry.RegisterGenerator(llm.NewGenerator(chat, store, llmOpts))
	registry.RegisterEnricher(llm.NewEnricher(chat, store, llmOpts))

	generator, err := registry.Generator(cfg.Generator.Strategy)
	if err != nil {
		return nil, err
	}
	enricher, err := registry.Enricher(cfg.Enricher.Strategy)
	if err != nil {
		return nil, err
	}

	normalizer, err := dedupNormalizer(cfg.Pipeline.Dedup)
	if err != nil {
		return nil, err
	}

	runLogger, err := a.runLogger(ctx)
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	if ns := a.notifiers(); len(ns) > 0 {
		notifier = ns
	}

	return usecase.NewPipeline(usecase.PipelineDeps{
		Backlog:         a.backlog,
		Store:           store,
		Scorer:          quality.NewScorer(store, scorerOpts),
		Generator:       generator,
		Enricher:        enricher,
		Archiver:        artifacts.OpenArchiver(store, cfg.Content.ArchiveDir),
		RunLogger:       runLogger,
		Notifier:        notifier,
		Normalizer:      normalizer,
		Logger:          a.logger.With("component", "pipeline"),
		Thresholds:      thresholds,
		Gates:           usecase.Gates{AutoPublish: cfg.Pipeline.AutoPublish, Reject: cfg.Pipeline.Reject},
		Pacing:          cfg.Pipeline.Pacing,
		EstimatedLift:   cfg.Pipeline.EstimatedLift,
		AutoArchive:     cfg.Pipeline.AutoArchive,
		SiteURL:         cfg.Content.SiteURL,
		DefaultCategory: cfg.Content.DefaultCategory,
	}), nil
}

// runLogger writes run records to the run-log directory and mirrors them to
// S3 (when a bucket is configured) and the history table.
func (a *Application) runLogger(ctx context.Context) (ports.RunLogger, error) {
	var mirrors []ports.RunLogger
	if s3cfg := a.cfg.RunLog.S3; s3cfg.Bucket != "" {
		mirror, err := runlog.DialS3Mirror(ctx, s3cfg.Region, s3cfg.Bucket, s3cfg.Prefix)
		if err != nil {
			return nil, err
		}
		mirrors = append(mirrors, mirror)
	}
	mirrors = append(mirrors, a.history)
	return runlog.NewMulti(a.logger.With("component", "runlog"), runlog.OpenFileLogger(a.cfg.RunLog.Dir), mirrors...), nil
}

func (a *Application) notifiers() usecase.Notifiers {
	var ns usecase.Notifiers
	n := a.cfg.Notifications
	if n.Webhook.URL != "" {
		ns = append(ns, webhook.NewNotifier(n.Webhook.URL))
	}
	if n.Telegram.BotToken != "" && n.Telegram.ChatID != "" {
		ns = append(ns, telegram.NewNotifier(n.Telegram.BotToken, n.Telegram.ChatID))
	}
	return ns
}

func dedupNormalizer(mode string) (keyword.Normalizer, error) {
	switch mode {
	case "", config.DedupBagOfWords:
		return keyword.BagOfWords, nil
	case config.DedupExact:
		return keyword.Exact, nil
	default:
		return nil, fmt.Errorf("unknown pipeline.dedup mode %q", mode)
	}
}

// Pipeline exposes the orchestration use case.
func (a *Application) Pipeline() *usecase.Pipeline { return a.pipeline }

// Backlog exposes the keyword backlog for the CLI.
func (a *Application) Backlog() *storage.Backlog { return a.backlog }

// History exposes past run summaries.
func (a *Application) History() *storage.History { return a.history }

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context, opts domain.RunOptions) (domain.RunRecord, error) {
	return a.pipeline.Run(ctx, opts)
}

// Schedule runs the pipeline on the given interval until ctx is done.
func (a *Application) Schedule(ctx context.Context, sc config.SchedulerConfig, opts domain.RunOptions) error {
	driver, err := scheduler.NewIntervalScheduler(sc.Every, sc.Timezone)
	if err != nil {
		return err
	}
	sched := usecase.NewScheduler(driver, a.pipeline, opts, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "every", sc.Every, "timezone", sc.Timezone)

	<-driver.Done()
	return sched.Stop(context.Background())
}

// Close releases the backlog database.
func (a *Application) Close() error {
	return a.db.Close()
}
