// Package app initializes and holds long-lived application services, acting
// as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/newstide/newstide/internal/clock"
	"github.com/newstide/newstide/internal/clock/system"
	"github.com/newstide/newstide/internal/config"
	"github.com/newstide/newstide/internal/feed"
	iduuid "github.com/newstide/newstide/internal/id/uuid"
	"github.com/newstide/newstide/internal/ingest"
	"github.com/newstide/newstide/internal/logging"
	"github.com/newstide/newstide/internal/metrics"
	"github.com/newstide/newstide/internal/publish"
	"github.com/newstide/newstide/internal/retention"
	"github.com/newstide/newstide/internal/storage/memory"
	"github.com/newstide/newstide/internal/storage/postgres"
	"github.com/newstide/newstide/internal/store"
)

// App holds the shared, long-lived services for the application. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     store.Store
	publisher publish.Publisher
	clock     clock.Clock
	ids       *iduuid.Generator
	pipeline  *ingest.Pipeline
	sweeper   *retention.Sweeper
}

// New builds the App from configuration, failing fast if any critical
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()

	var st store.Store
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres")
		st, err = postgres.New(ctx, cfg.DB.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
	case "memory":
		logger.Info("using in-memory store; data will not survive restarts")
		st = memory.New()
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	var publisher publish.Publisher
	switch cfg.PubSub.Provider {
	case "pubsub":
		logger.Info("connecting to pubsub", zap.String("topic", cfg.PubSub.TopicID))
		publisher, err = publish.NewPubSub(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicID)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
	default:
		publisher = publish.NoOp{}
	}

	clk := system.New()
	ids := iduuid.NewGenerator()

	a := &App{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		publisher: publisher,
		clock:     clk,
		ids:       ids,
	}
	a.pipeline = ingest.New(st, publisher, clk, ids, ingest.Config{
		Concurrency:       cfg.Crawler.Concurrency,
		SummaryLimit:      cfg.Crawler.SummaryLimit,
		DefaultImportance: cfg.Scores.Importance,
		DefaultSentiment:  cfg.Scores.Sentiment,
	}, logger)
	a.sweeper = retention.NewSweeper(st, publisher, clk, ids, retention.Mode(cfg.Retention.Mode), logger)
	return a, nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger { return a.logger }

// Store exposes the configured persistence layer.
func (a *App) Store() store.Store { return a.store }

// Clock returns the application time source.
func (a *App) Clock() clock.Clock { return a.clock }

// Sweeper returns the retention sweeper.
func (a *App) Sweeper() *retention.Sweeper { return a.sweeper }

// NewScheduler builds the daily retention scheduler from config.
func (a *App) NewScheduler(windowDays int) (*retention.Scheduler, error) {
	hour, minute, err := config.ParseTimeOfDay(a.cfg.Retention.At)
	if err != nil {
		return nil, err
	}
	return retention.NewScheduler(a.sweeper, windowDays, hour, minute, a.logger)
}

// StartCrawl runs one ingestion pass over the configured sources. Mock mode
// swaps the live fetch adapters for synthetic ones; persistence and dedup
// behave identically.
func (a *App) StartCrawl(ctx context.Context, useMock bool, maxItems int) (ingest.Summary, error) {
	if maxItems <= 0 {
		maxItems = a.cfg.Crawler.MaxItems
	}
	return a.pipeline.Run(ctx, a.fetchers(useMock), maxItems)
}

func (a *App) fetchers(useMock bool) []feed.Fetcher {
	sources := a.cfg.Crawler.Sources
	if useMock && len(sources) == 0 {
		// Mock runs stay useful on an empty config.
		sources = []config.FeedSource{{
			Name:     "TestFeed",
			BaseURL:  "https://testfeed.example",
			Category: "general",
		}}
	}
	fetchers := make([]feed.Fetcher, 0, len(sources))
	for _, src := range sources {
		if useMock {
			fetchers = append(fetchers, feed.NewMockFetcher(src.Name, src.BaseURL, src.Category, a.clock))
			continue
		}
		fetchers = append(fetchers, feed.NewCollyFetcher(src, a.cfg.Crawler.UserAgent, a.cfg.FetchTimeout(), a.logger))
	}
	return fetchers
}

// Close gracefully shuts down all services in the container.
func (a *App) Close() {
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("close publisher", zap.Error(err))
	}
	a.store.Close()
	// Flush buffered log entries; stderr sync failures are expected on some
	// platforms and not actionable.
	_ = a.logger.Sync()
}
