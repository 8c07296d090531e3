package ingest

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newstide/newstide/internal/feed"
	iduuid "github.com/newstide/newstide/internal/id/uuid"
	"github.com/newstide/newstide/internal/metrics"
	"github.com/newstide/newstide/internal/publish"
	"github.com/newstide/newstide/internal/storage/memory"
	"github.com/newstide/newstide/internal/store"
)

func TestMain(m *testing.M) {
	metrics.Init()
	os.Exit(m.Run())
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type capturePublisher struct {
	mu     sync.Mutex
	events []publish.RunEvent
}

func (p *capturePublisher) Publish(_ context.Context, e publish.RunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) Events() []publish.RunEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publish.RunEvent, len(p.events))
	copy(out, p.events)
	return out
}

type staticFetcher struct {
	name    string
	baseURL string
	items   []feed.Item
	err     error
}

func (f *staticFetcher) Name() string    { return f.name }
func (f *staticFetcher) BaseURL() string { return f.baseURL }

func (f *staticFetcher) Fetch(_ context.Context, _ int) ([]feed.Item, error) {
	return f.items, f.err
}

// blockingFetcher parks inside Fetch until released, keeping the run lock held.
type blockingFetcher struct {
	entered chan struct{}
	release chan struct{}
}

func (f *blockingFetcher) Name() string    { return "Blocking Wire" }
func (f *blockingFetcher) BaseURL() string { return "https://blocking.example" }

func (f *blockingFetcher) Fetch(_ context.Context, _ int) ([]feed.Item, error) {
	f.entered <- struct{}{}
	<-f.release
	return nil, nil
}

type pingFailStore struct {
	store.Store
}

func (pingFailStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func newTestPipeline(st store.Store, pub publish.Publisher, clk *fakeClock) *Pipeline {
	return New(st, pub, clk, iduuid.NewGenerator(), Config{
		Concurrency:       2,
		SummaryLimit:      200,
		DefaultImportance: 0.6,
	}, zap.NewNop())
}

func TestRunPersistsAndDedupsAcrossRuns(t *testing.T) {
	t.Parallel()

	st := memory.New()
	pub := &capturePublisher{}
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(st, pub, clk)

	fetchers := []feed.Fetcher{
		feed.NewMockFetcher("Alpha Wire", "https://alpha.example", "markets", clk),
		feed.NewMockFetcher("Beta Daily", "https://beta.example", "tech", clk),
	}

	summary, err := p.Run(context.Background(), fetchers, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 6, summary.New)
	assert.Equal(t, 0, summary.Duplicate)
	assert.Equal(t, 0, summary.Errors)

	count, err := st.CountActiveArticles(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	// Same batch again: everything collapses to duplicates, nothing is written.
	summary, err = p.Run(context.Background(), fetchers, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Total)
	assert.Equal(t, 0, summary.New)
	assert.Equal(t, 6, summary.Duplicate)

	count, err = st.CountActiveArticles(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 6, count)

	runs, err := st.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, store.RunKindIngest, run.Kind)
		assert.Equal(t, store.RunSuccess, run.Status)
		require.NotNil(t, run.FinishedAt)
	}

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, string(store.RunKindIngest), events[0].Kind)
	assert.Equal(t, 6, events[0].NewCount)
	assert.Equal(t, 6, events[1].DupCount)
}

func TestRunCountsSourceFailureAsPartial(t *testing.T) {
	t.Parallel()

	st := memory.New()
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(st, publish.NoOp{}, clk)

	fetchers := []feed.Fetcher{
		feed.NewMockFetcher("Alpha Wire", "https://alpha.example", "markets", clk),
		&staticFetcher{name: "Broken Feed", baseURL: "https://broken.example", err: errors.New("dial tcp: timeout")},
	}

	summary, err := p.Run(context.Background(), fetchers, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.New)
	assert.Equal(t, 1, summary.Errors)

	run, err := st.LastRun(context.Background(), store.RunKindIngest)
	require.NoError(t, err)
	assert.Equal(t, store.RunPartial, run.Status)
	assert.Equal(t, 1, run.ErrorCount)
	assert.Equal(t, 2, run.NewCount)
}

func TestRunCountsEmptyTitleAsItemError(t *testing.T) {
	t.Parallel()

	st := memory.New()
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(st, publish.NoOp{}, clk)

	fetchers := []feed.Fetcher{&staticFetcher{
		name:    "Mixed Feed",
		baseURL: "https://mixed.example",
		items: []feed.Item{
			{Title: "Valid headline", URL: "https://mixed.example/a"},
			{Title: "   ", URL: "https://mixed.example/b"},
		},
	}}

	summary, err := p.Run(context.Background(), fetchers, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 1, summary.Errors)

	run, err := st.LastRun(context.Background(), store.RunKindIngest)
	require.NoError(t, err)
	assert.Equal(t, store.RunPartial, run.Status)
}

func TestRunCapsItemsPerSource(t *testing.T) {
	t.Parallel()

	st := memory.New()
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(st, publish.NoOp{}, clk)

	items := make([]feed.Item, 0, 5)
	for _, title := range []string{"One", "Two", "Three", "Four", "Five"} {
		items = append(items, feed.Item{Title: title, URL: "https://wide.example/" + title})
	}
	fetchers := []feed.Fetcher{&staticFetcher{name: "Wide Feed", baseURL: "https://wide.example", items: items}}

	summary, err := p.Run(context.Background(), fetchers, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.New)
}

func TestRunSkipsInactiveSources(t *testing.T) {
	t.Parallel()

	st := memory.New()
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(st, publish.NoOp{}, clk)

	_, err := st.GetOrCreateSource(context.Background(), "Silent Wire", "https://silent.example")
	require.NoError(t, err)
	require.NoError(t, st.DeactivateSource(context.Background(), "Silent Wire"))

	fetchers := []feed.Fetcher{feed.NewMockFetcher("Silent Wire", "https://silent.example", "", clk)}
	summary, err := p.Run(context.Background(), fetchers, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, 0, summary.Errors)
}

func TestRunRejectsConcurrentInvocation(t *testing.T) {
	t.Parallel()

	st := memory.New()
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(st, publish.NoOp{}, clk)

	blocker := &blockingFetcher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run(context.Background(), []feed.Fetcher{blocker}, 1)
	}()

	<-blocker.entered
	_, err := p.Run(context.Background(), nil, 1)
	require.ErrorIs(t, err, store.ErrBusy)

	close(blocker.release)
	<-done
}

func TestRunVisibleInLedgerWhileInFlight(t *testing.T) {
	t.Parallel()

	st := memory.New()
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(st, publish.NoOp{}, clk)

	blocker := &blockingFetcher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run(context.Background(), []feed.Fetcher{blocker}, 1)
	}()

	<-blocker.entered
	runs, err := st.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunRunning, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)

	close(blocker.release)
	<-done

	// Completion finalizes the same row instead of appending a second one.
	runs, err = st.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.RunSuccess, runs[0].Status)
	require.NotNil(t, runs[0].FinishedAt)
}

func TestRunFailsWhenStoreUnavailable(t *testing.T) {
	t.Parallel()

	st := memory.New()
	clk := &fakeClock{now: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)}
	p := newTestPipeline(pingFailStore{Store: st}, publish.NoOp{}, clk)

	fetchers := []feed.Fetcher{feed.NewMockFetcher("Alpha Wire", "https://alpha.example", "", clk)}
	_, err := p.Run(context.Background(), fetchers, 3)
	require.Error(t, err)

	// The failed start still leaves a ledger entry.
	run, err := st.LastRun(context.Background(), store.RunKindIngest)
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, run.Status)
	assert.Equal(t, 0, run.NewCount)
}
