package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/newstide/newstide/internal/store"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *Store) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewWithQuerier(mock, zap.NewNop())
}

func TestGetOrCreateSourceReturnsRow(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("INSERT INTO sources").
		WithArgs(pgxmock.AnyArg(), "Alpha Wire", "https://alpha.example").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "base_url", "active"}).
			AddRow(id, "Alpha Wire", "https://alpha.example", true))

	src, err := st.GetOrCreateSource(context.Background(), "Alpha Wire", "https://alpha.example")
	require.NoError(t, err)
	assert.Equal(t, id, src.ID)
	assert.Equal(t, "Alpha Wire", src.Name)
	assert.True(t, src.Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateSourceNotFound(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	mock.ExpectExec("UPDATE sources SET active").
		WithArgs("No Such Source").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.DeactivateSource(context.Background(), "No Such Source")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrCreateCategoryReturnsRow(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("(?s)INSERT INTO categories.+SET description = COALESCE").
		WithArgs(pgxmock.AnyArg(), "markets", "").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description"}).
			AddRow(id, "markets", ""))

	cat, err := st.GetOrCreateCategory(context.Background(), "markets", "")
	require.NoError(t, err)
	assert.Equal(t, id, cat.ID)
	assert.Equal(t, "markets", cat.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertArticleReportsNewAndDuplicate(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	article := store.Article{
		ID:              uuid.New(),
		SourceID:        uuid.New(),
		CategoryID:      uuid.New(),
		Title:           "Fed Raises Rates",
		DedupKey:        "abc123",
		Content:         "body",
		Summary:         "teaser",
		URL:             "https://alpha.example/fed",
		PublishedAt:     now,
		CrawledAt:       now,
		ImportanceScore: 0.6,
		SentimentScore:  0,
		Status:          store.ArticleActive,
	}
	args := []any{
		article.ID,
		article.SourceID,
		article.CategoryID,
		article.Title,
		article.DedupKey,
		article.Content,
		article.Summary,
		article.URL,
		article.PublishedAt,
		article.CrawledAt,
		article.ImportanceScore,
		article.SentimentScore,
		article.Status,
	}

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO articles").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := st.InsertArticle(context.Background(), article)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = st.InsertArticle(context.Background(), article)
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAndArchiveArticlesBefore(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	cutoff := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("DELETE FROM articles").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec("UPDATE articles SET status").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	deleted, err := st.DeleteArticlesBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	archived, err := st.ArchiveArticlesBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, archived)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunInsertsLedgerRow(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(time.Second)

	run := store.CrawlRun{
		ID:             uuid.New(),
		Kind:           store.RunKindIngest,
		StartedAt:      started,
		FinishedAt:     &finished,
		RequestedCount: 6,
		FetchedCount:   6,
		NewCount:       4,
		DuplicateCount: 2,
		Status:         store.RunSuccess,
	}

	mock.ExpectExec("INSERT INTO crawl_runs").
		WithArgs(
			run.ID,
			run.Kind,
			run.SourceID,
			run.StartedAt,
			run.FinishedAt,
			run.RequestedCount,
			run.FetchedCount,
			run.NewCount,
			run.DuplicateCount,
			run.DeletedCount,
			run.ErrorCount,
			run.Status,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.RecordRun(context.Background(), run))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordRunFinalizesRunningRow(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	started := time.Unix(1700000000, 0).UTC()
	id := uuid.New()

	running := store.CrawlRun{
		ID:             id,
		Kind:           store.RunKindIngest,
		StartedAt:      started,
		RequestedCount: 6,
		Status:         store.RunRunning,
	}
	finished := started.Add(time.Second)
	final := running
	final.FinishedAt = &finished
	final.FetchedCount = 6
	final.NewCount = 4
	final.DuplicateCount = 2
	final.Status = store.RunSuccess

	for _, run := range []store.CrawlRun{running, final} {
		mock.ExpectExec("(?s)INSERT INTO crawl_runs.+ON CONFLICT \\(id\\) DO UPDATE").
			WithArgs(
				run.ID,
				run.Kind,
				run.SourceID,
				run.StartedAt,
				run.FinishedAt,
				run.RequestedCount,
				run.FetchedCount,
				run.NewCount,
				run.DuplicateCount,
				run.DeletedCount,
				run.ErrorCount,
				run.Status,
			).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	require.NoError(t, st.RecordRun(context.Background(), running))
	require.NoError(t, st.RecordRun(context.Background(), final))
	require.NoError(t, mock.ExpectationsWereMet())
}

func runRowColumns() []string {
	return []string{
		"id", "kind", "source_id", "started_at", "finished_at", "requested_count",
		"fetched_count", "new_count", "duplicate_count", "deleted_count", "error_count", "status",
	}
}

func TestRecentRunsScansRows(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	started := time.Unix(1700000000, 0).UTC()
	finished := started.Add(time.Second)
	first := uuid.New()
	second := uuid.New()

	rows := pgxmock.NewRows(runRowColumns()).
		AddRow(first, store.RunKindIngest, nil, started.Add(time.Hour), &finished, 6, 6, 4, 2, 0, 0, store.RunSuccess).
		AddRow(second, store.RunKindRetention, nil, started, &finished, 0, 0, 0, 0, 5, 0, store.RunSuccess)

	mock.ExpectQuery("FROM crawl_runs ORDER BY started_at DESC").
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := st.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, store.RunKindIngest, runs[0].Kind)
	assert.Equal(t, 4, runs[0].NewCount)
	assert.Equal(t, store.RunKindRetention, runs[1].Kind)
	assert.Equal(t, 5, runs[1].DeletedCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLastRunNotFound(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	mock.ExpectQuery("FROM crawl_runs").
		WithArgs(store.RunKindRetention).
		WillReturnError(pgx.ErrNoRows)

	_, err := st.LastRun(context.Background(), store.RunKindRetention)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceTotalsScansRows(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	rows := pgxmock.NewRows([]string{"name", "count"}).
		AddRow("Alpha Wire", int64(4)).
		AddRow("Beta Daily", int64(0))

	mock.ExpectQuery("SELECT s.name, COUNT").
		WillReturnRows(rows)

	totals, err := st.SourceTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, store.SourceTotal{Source: "Alpha Wire", Count: 4}, totals[0])
	assert.Equal(t, store.SourceTotal{Source: "Beta Daily", Count: 0}, totals[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaExecutesAllStatements(t *testing.T) {
	t.Parallel()

	mock, st := newMockStore(t)
	for _, pattern := range []string{
		"CREATE TABLE IF NOT EXISTS sources",
		"CREATE TABLE IF NOT EXISTS categories",
		"CREATE TABLE IF NOT EXISTS articles",
		"CREATE TABLE IF NOT EXISTS crawl_runs",
		"CREATE INDEX IF NOT EXISTS idx_articles_crawled_at",
		"CREATE INDEX IF NOT EXISTS idx_crawl_runs_started_at",
	} {
		mock.ExpectExec(pattern).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, st.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
