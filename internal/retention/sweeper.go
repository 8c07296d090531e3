// Package retention implements the rolling-window sweep that removes stale
// articles, plus the recurring scheduler that fires it once per day.
package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newstide/newstide/internal/clock"
	iduuid "github.com/newstide/newstide/internal/id/uuid"
	"github.com/newstide/newstide/internal/metrics"
	"github.com/newstide/newstide/internal/publish"
	"github.com/newstide/newstide/internal/store"
)

// Mode selects what happens to articles older than the retention window.
type Mode string

// Sweep modes.
const (
	// ModeDelete hard-removes eligible rows.
	ModeDelete Mode = "delete"
	// ModeArchive transitions eligible rows to status=archived.
	ModeArchive Mode = "archive"
)

// Result aggregates the outcome of one sweep.
type Result struct {
	Deleted    int64 `json:"deleted"`
	Kept       int64 `json:"kept"`
	DurationMs int64 `json:"duration_ms"`
}

// Status describes the sweeper as derived from the crawl ledger, so a fresh
// process reports accurate history.
type Status struct {
	LastRunAt       *time.Time `json:"last_run_at"`
	LastDeleted     int64      `json:"last_deleted"`
	LastStatus      string     `json:"last_status"`
	NextScheduledAt *time.Time `json:"next_scheduled_at"`
}

// Sweeper executes retention sweeps. Only one sweep may run at a time; a
// request arriving while another is in progress is rejected with
// store.ErrBusy, never queued and never run concurrently.
type Sweeper struct {
	store     store.Store
	publisher publish.Publisher
	clock     clock.Clock
	ids       *iduuid.Generator
	mode      Mode
	logger    *zap.Logger

	mu sync.Mutex
}

// NewSweeper constructs a Sweeper.
func NewSweeper(
	st store.Store,
	publisher publish.Publisher,
	clk clock.Clock,
	ids *iduuid.Generator,
	mode Mode,
	logger *zap.Logger,
) *Sweeper {
	if mode == "" {
		mode = ModeDelete
	}
	if publisher == nil {
		publisher = publish.NoOp{}
	}
	return &Sweeper{
		store:     st,
		publisher: publisher,
		clock:     clk,
		ids:       ids,
		mode:      mode,
		logger:    logger,
	}
}

// Sweep removes (or archives) active articles whose crawl age is at least
// windowDays. The boundary is inclusive: an article exactly windowDays old is
// eligible. Sweeping twice in immediate succession deletes nothing the second
// time, since the eligible set is empty.
func (s *Sweeper) Sweep(ctx context.Context, windowDays int) (Result, error) {
	if windowDays <= 0 {
		return Result{}, fmt.Errorf("window days must be > 0, got %d", windowDays)
	}
	if !s.mu.TryLock() {
		return Result{}, fmt.Errorf("sweep: %w", store.ErrBusy)
	}
	defer s.mu.Unlock()

	metrics.RunStarted(string(store.RunKindRetention))
	defer metrics.RunFinished(string(store.RunKindRetention))

	started := s.clock.Now()
	runID, err := s.ids.NewRawID()
	if err != nil {
		return Result{}, fmt.Errorf("generate run id: %w", err)
	}
	cutoff := started.Add(-time.Duration(windowDays) * 24 * time.Hour)

	// Open the ledger entry up front so an in-flight sweep is observable and a
	// crash mid-sweep leaves a running row behind as evidence.
	if err := s.store.RecordRun(ctx, store.CrawlRun{
		ID:        runID,
		Kind:      store.RunKindRetention,
		StartedAt: started,
		Status:    store.RunRunning,
	}); err != nil {
		return Result{}, fmt.Errorf("record running retention run: %w", err)
	}

	var removed int64
	switch s.mode {
	case ModeArchive:
		removed, err = s.store.ArchiveArticlesBefore(ctx, cutoff)
	default:
		removed, err = s.store.DeleteArticlesBefore(ctx, cutoff)
	}
	if err != nil {
		s.recordRun(ctx, runID, started, 0, 1, store.RunFailed)
		return Result{}, fmt.Errorf("sweep articles: %w", err)
	}

	kept, err := s.store.CountActiveArticles(ctx)
	if err != nil {
		s.recordRun(ctx, runID, started, removed, 1, store.RunPartial)
		return Result{}, fmt.Errorf("count kept articles: %w", err)
	}

	finished := s.clock.Now()
	result := Result{
		Deleted:    removed,
		Kept:       kept,
		DurationMs: finished.Sub(started).Milliseconds(),
	}
	if err := s.recordRun(ctx, runID, started, removed, 0, store.RunSuccess); err != nil {
		return result, err
	}
	metrics.AddRemoved(removed)
	metrics.ObserveRun(string(store.RunKindRetention), string(store.RunSuccess))

	s.logger.Info("retention sweep finished",
		zap.String("run_id", runID.String()),
		zap.Int("window_days", windowDays),
		zap.String("mode", string(s.mode)),
		zap.Int64("removed", removed),
		zap.Int64("kept", kept),
	)
	return result, nil
}

// LastRun returns the sweeper half of Status, read from the ledger.
func (s *Sweeper) LastRun(ctx context.Context) (store.CrawlRun, error) {
	return s.store.LastRun(ctx, store.RunKindRetention)
}

func (s *Sweeper) recordRun(
	ctx context.Context,
	runID uuid.UUID,
	started time.Time,
	removed int64,
	errCount int,
	status store.RunStatus,
) error {
	finished := s.clock.Now()
	run := store.CrawlRun{
		ID:           runID,
		Kind:         store.RunKindRetention,
		StartedAt:    started,
		FinishedAt:   &finished,
		DeletedCount: int(removed),
		ErrorCount:   errCount,
		Status:       status,
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		return fmt.Errorf("record retention run: %w", err)
	}
	event := publish.RunEvent{
		RunID:      runID.String(),
		Kind:       string(store.RunKindRetention),
		Status:     string(status),
		DelCount:   int(removed),
		ErrCount:   errCount,
		FinishedAt: finished,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish run event failed", zap.Error(err))
	}
	return nil
}
