package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstide/newstide/internal/config"
	"github.com/newstide/newstide/internal/store"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestStartCrawlMockWithEmptyConfigFallsBackToTestFeed(t *testing.T) {
	a := newTestApp(t)

	summary, err := a.StartCrawl(context.Background(), true, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.New)

	src, err := a.Store().GetOrCreateSource(context.Background(), "TestFeed", "https://testfeed.example")
	require.NoError(t, err)
	assert.True(t, src.Active)

	run, err := a.Store().LastRun(context.Background(), store.RunKindIngest)
	require.NoError(t, err)
	assert.Equal(t, store.RunSuccess, run.Status)
}

func TestStartCrawlZeroMaxUsesConfigDefault(t *testing.T) {
	a := newTestApp(t)

	summary, err := a.StartCrawl(context.Background(), true, 0)
	require.NoError(t, err)
	// The mock fetcher emits one item per slot up to crawler.max_items.
	assert.Equal(t, a.Config().Crawler.MaxItems, summary.Total)
}

func TestNewSchedulerFromConfig(t *testing.T) {
	a := newTestApp(t)

	sched, err := a.NewScheduler(a.Config().Retention.WindowDays)
	require.NoError(t, err)
	assert.False(t, sched.Next().IsZero())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.DB.Provider = "sqlite"

	_, err = New(context.Background(), cfg)
	require.Error(t, err)
}
