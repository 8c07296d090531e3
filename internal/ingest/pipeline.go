// Package ingest implements the fetch-normalize-dedup-persist pipeline.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newstide/newstide/internal/clock"
	"github.com/newstide/newstide/internal/feed"
	iduuid "github.com/newstide/newstide/internal/id/uuid"
	"github.com/newstide/newstide/internal/metrics"
	"github.com/newstide/newstide/internal/publish"
	"github.com/newstide/newstide/internal/store"
)

// Config controls pipeline behavior.
type Config struct {
	// Concurrency bounds how many sources are fetched in parallel.
	Concurrency int
	// SummaryLimit caps summaries at this many runes.
	SummaryLimit int
	// DefaultImportance and DefaultSentiment are assigned when a fetch
	// adapter supplies no scores.
	DefaultImportance float64
	DefaultSentiment  float64
}

// Summary aggregates the outcome of one ingestion run.
type Summary struct {
	Total      int   `json:"total"`
	New        int   `json:"new"`
	Duplicate  int   `json:"duplicate"`
	Errors     int   `json:"errors"`
	DurationMs int64 `json:"duration_ms"`
}

// Pipeline runs per-source ingestion and writes one ledger entry per run.
// Only one run may be in flight at a time; concurrent Run calls are rejected
// with store.ErrBusy rather than queued.
type Pipeline struct {
	store     store.Store
	publisher publish.Publisher
	clock     clock.Clock
	ids       *iduuid.Generator
	cfg       Config
	logger    *zap.Logger

	mu sync.Mutex
}

// New constructs a Pipeline.
func New(
	st store.Store,
	publisher publish.Publisher,
	clk clock.Clock,
	ids *iduuid.Generator,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SummaryLimit <= 0 {
		cfg.SummaryLimit = 200
	}
	if publisher == nil {
		publisher = publish.NoOp{}
	}
	return &Pipeline{
		store:     st,
		publisher: publisher,
		clock:     clk,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run fetches up to maxItems items from every fetcher, persists the new ones,
// and records one CrawlRun covering the whole invocation. Item-level failures
// are counted and skipped; the run itself fails only when the store is
// unusable or another run holds the lock.
func (p *Pipeline) Run(ctx context.Context, fetchers []feed.Fetcher, maxItems int) (Summary, error) {
	if !p.mu.TryLock() {
		return Summary{}, fmt.Errorf("ingestion: %w", store.ErrBusy)
	}
	defer p.mu.Unlock()

	metrics.RunStarted(string(store.RunKindIngest))
	defer metrics.RunFinished(string(store.RunKindIngest))

	started := p.clock.Now()
	runID, err := p.ids.NewRawID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	requested := maxItems * len(fetchers)

	if err := p.store.Ping(ctx); err != nil {
		// The run could not start at all; still leave a ledger entry so
		// status reporting has no silent gap.
		p.recordRun(ctx, runID, started, Summary{}, store.RunFailed, requested)
		return Summary{}, fmt.Errorf("store unavailable: %w", err)
	}

	// Open the ledger entry up front so an in-flight run is observable and a
	// crash mid-run leaves a running row behind as evidence.
	if err := p.store.RecordRun(ctx, store.CrawlRun{
		ID:             runID,
		Kind:           store.RunKindIngest,
		StartedAt:      started,
		RequestedCount: requested,
		Status:         store.RunRunning,
	}); err != nil {
		return Summary{}, fmt.Errorf("record running ingestion run: %w", err)
	}

	var (
		countsMu sync.Mutex
		total    Summary
	)
	add := func(s Summary) {
		countsMu.Lock()
		defer countsMu.Unlock()
		total.Total += s.Total
		total.New += s.New
		total.Duplicate += s.Duplicate
		total.Errors += s.Errors
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, fetcher := range fetchers {
		g.Go(func() error {
			add(p.ingestSource(gctx, fetcher, maxItems))
			return nil
		})
	}
	// Source-level failures are folded into the counters, never returned.
	_ = g.Wait()

	finished := p.clock.Now()
	total.DurationMs = finished.Sub(started).Milliseconds()

	status := store.RunSuccess
	if total.Errors > 0 {
		status = store.RunPartial
	}
	if err := p.recordRun(ctx, runID, started, total, status, requested); err != nil {
		return total, err
	}
	metrics.ObserveRun(string(store.RunKindIngest), string(status))

	p.logger.Info("ingestion run finished",
		zap.String("run_id", runID.String()),
		zap.String("status", string(status)),
		zap.Int("total", total.Total),
		zap.Int("new", total.New),
		zap.Int("duplicate", total.Duplicate),
		zap.Int("errors", total.Errors),
		zap.Int64("duration_ms", total.DurationMs),
	)
	return total, nil
}

func (p *Pipeline) ingestSource(ctx context.Context, fetcher feed.Fetcher, maxItems int) Summary {
	var s Summary
	name := fetcher.Name()

	src, err := p.store.GetOrCreateSource(ctx, name, fetcher.BaseURL())
	if err != nil {
		p.logger.Error("resolve source failed", zap.String("source", name), zap.Error(err))
		s.Errors++
		return s
	}
	if !src.Active {
		p.logger.Debug("source inactive, skipping", zap.String("source", name))
		return s
	}

	items, err := fetcher.Fetch(ctx, maxItems)
	if err != nil {
		p.logger.Error("fetch failed", zap.String("source", name), zap.Error(err))
		s.Errors++
		return s
	}
	if maxItems > 0 && len(items) > maxItems {
		items = items[:maxItems]
	}

	for _, item := range items {
		s.Total++
		outcome := p.ingestItem(ctx, src, item)
		switch outcome {
		case outcomeNew:
			s.New++
		case outcomeDuplicate:
			s.Duplicate++
		case outcomeError:
			s.Errors++
		}
		metrics.ObserveItem(name, string(outcome))
	}
	return s
}

type itemOutcome string

const (
	outcomeNew       itemOutcome = "new"
	outcomeDuplicate itemOutcome = "duplicate"
	outcomeError     itemOutcome = "error"
)

func (p *Pipeline) ingestItem(ctx context.Context, src store.Source, item feed.Item) itemOutcome {
	title := NormalizeTitle(item.Title)
	if title == "" {
		p.logger.Warn("item with empty title", zap.String("source", src.Name), zap.String("url", item.URL))
		return outcomeError
	}

	categoryName := item.Category
	if categoryName == "" {
		categoryName = "general"
	}
	category, err := p.store.GetOrCreateCategory(ctx, categoryName, "")
	if err != nil {
		p.logger.Error("resolve category failed",
			zap.String("source", src.Name),
			zap.String("category", categoryName),
			zap.Error(err),
		)
		return outcomeError
	}

	now := p.clock.Now()
	publishedAt := item.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = now
	}
	importance := p.cfg.DefaultImportance
	if item.Importance != nil {
		importance = *item.Importance
	}
	sentiment := p.cfg.DefaultSentiment
	if item.Sentiment != nil {
		sentiment = *item.Sentiment
	}

	id, err := p.ids.NewRawID()
	if err != nil {
		p.logger.Error("generate article id failed", zap.Error(err))
		return outcomeError
	}

	inserted, err := p.store.InsertArticle(ctx, store.Article{
		ID:              id,
		SourceID:        src.ID,
		CategoryID:      category.ID,
		Title:           title,
		DedupKey:        DedupKey(title),
		Content:         item.Content,
		Summary:         Summarize(item.Summary, item.Content, p.cfg.SummaryLimit),
		URL:             item.URL,
		PublishedAt:     publishedAt,
		CrawledAt:       now,
		ImportanceScore: importance,
		SentimentScore:  sentiment,
		Status:          store.ArticleActive,
	})
	if err != nil {
		p.logger.Error("persist article failed",
			zap.String("source", src.Name),
			zap.String("title", title),
			zap.Error(err),
		)
		return outcomeError
	}
	if !inserted {
		return outcomeDuplicate
	}
	return outcomeNew
}

func (p *Pipeline) recordRun(
	ctx context.Context,
	runID uuid.UUID,
	started time.Time,
	s Summary,
	status store.RunStatus,
	requested int,
) error {
	finished := p.clock.Now()
	run := store.CrawlRun{
		ID:             runID,
		Kind:           store.RunKindIngest,
		StartedAt:      started,
		FinishedAt:     &finished,
		RequestedCount: requested,
		FetchedCount:   s.Total,
		NewCount:       s.New,
		DuplicateCount: s.Duplicate,
		ErrorCount:     s.Errors,
		Status:         status,
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("record ingestion run: %w", err)
	}
	if err := p.publisher.Publish(ctx, publish.RunEvent{
		RunID:      runID.String(),
		Kind:       string(store.RunKindIngest),
		Status:     string(status),
		NewCount:   s.New,
		DupCount:   s.Duplicate,
		ErrCount:   s.Errors,
		FinishedAt: finished,
	}); err != nil {
		p.logger.Warn("publish run event failed", zap.Error(err))
	}
	return nil
}
