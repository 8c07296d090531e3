package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/newstide/newstide/internal/store"
)

// Scheduler fires one sweep per calendar day at a fixed time-of-day. Stop
// cancels future ticks; a sweep already in flight finishes uninterrupted.
type Scheduler struct {
	cron       *cron.Cron
	sweeper    *Sweeper
	windowDays int
	logger     *zap.Logger
	entryID    cron.EntryID
}

// NewScheduler builds a Scheduler firing daily at hour:minute.
func NewScheduler(sweeper *Sweeper, windowDays, hour, minute int, logger *zap.Logger) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{
		cron:       c,
		sweeper:    sweeper,
		windowDays: windowDays,
		logger:     logger,
	}

	spec := fmt.Sprintf("%d %d * * *", minute, hour)
	entryID, err := c.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("schedule retention sweep: %w", err)
	}
	s.entryID = entryID
	return s, nil
}

// Start begins firing scheduled sweeps.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("retention scheduler started",
		zap.Int("window_days", s.windowDays),
		zap.Time("next", s.Next()),
	)
}

// Stop cancels future ticks and returns a context that is done once any
// in-flight sweep has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next reports when the next sweep will fire. Before Start the cron loop has
// not computed activation times yet, so fall back to the schedule itself.
func (s *Scheduler) Next() time.Time {
	entry := s.cron.Entry(s.entryID)
	if !entry.Next.IsZero() {
		return entry.Next
	}
	if entry.Schedule != nil {
		return entry.Schedule.Next(time.Now())
	}
	return time.Time{}
}

// Status combines ledger history with the schedule. The history side comes
// from the persisted crawl ledger, so it survives process restarts.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	var status Status
	next := s.Next()
	if !next.IsZero() {
		status.NextScheduledAt = &next
	}

	last, err := s.sweeper.LastRun(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return status, nil
		}
		return Status{}, fmt.Errorf("load last retention run: %w", err)
	}
	status.LastRunAt = last.FinishedAt
	status.LastDeleted = int64(last.DeletedCount)
	status.LastStatus = string(last.Status)
	return status, nil
}

func (s *Scheduler) tick() {
	ctx := context.Background()
	if _, err := s.sweeper.Sweep(ctx, s.windowDays); err != nil {
		if errors.Is(err, store.ErrBusy) {
			// Never run two sweeps against the same store; the missed tick
			// is made up by the next day's fire.
			s.logger.Warn("scheduled sweep skipped, another sweep in progress")
			return
		}
		s.logger.Error("scheduled sweep failed", zap.Error(err))
	}
}
