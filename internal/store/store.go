package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrBusy signals that a mutually exclusive operation is already in flight.
var ErrBusy = errors.New("operation already in progress")

// SourceRepository persists the source half of the registry.
type SourceRepository interface {
	// GetOrCreateSource resolves a source by name, creating it on first
	// encounter. It is idempotent and safe under concurrent callers: the
	// insert-if-absent must be atomic at the storage layer.
	GetOrCreateSource(ctx context.Context, name, baseURL string) (Source, error)
	// DeactivateSource flips a source to inactive. Sources are never deleted.
	DeactivateSource(ctx context.Context, name string) error
	CountSources(ctx context.Context) (int64, error)
}

// CategoryRepository persists the category half of the registry.
type CategoryRepository interface {
	GetOrCreateCategory(ctx context.Context, name, description string) (Category, error)
	CountCategories(ctx context.Context) (int64, error)
}

// ArticleRepository persists articles and retention transitions.
type ArticleRepository interface {
	// InsertArticle atomically inserts the article unless one with the same
	// (source, dedup key) already exists. It reports whether a row was
	// actually written; a false return with nil error is a duplicate.
	InsertArticle(ctx context.Context, article Article) (bool, error)
	// DeleteArticlesBefore hard-removes active articles crawled at or before
	// the cutoff and returns the number of rows removed.
	DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// ArchiveArticlesBefore is the soft variant: eligible rows transition to
	// status=archived instead of being removed.
	ArchiveArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountActiveArticles(ctx context.Context) (int64, error)
	CountArticlesCrawledSince(ctx context.Context, since time.Time) (int64, error)
}

// RunRepository is the crawl ledger: an append-mostly log of run outcomes
// plus the derived aggregates the status endpoints serve.
type RunRepository interface {
	// RecordRun upserts one ledger entry keyed by run ID. Producers write the
	// row twice: once at start with status=running and no FinishedAt, and once
	// at completion with final counts and a terminal status.
	RecordRun(ctx context.Context, run CrawlRun) error
	// RecentRuns returns up to limit ledger entries, most recent first.
	RecentRuns(ctx context.Context, limit int) ([]CrawlRun, error)
	// LastRun returns the most recent finished run of the given kind, or
	// ErrNotFound when the ledger has none.
	LastRun(ctx context.Context, kind RunKind) (CrawlRun, error)
	// SourceTotals maps source name to its active article count.
	SourceTotals(ctx context.Context) ([]SourceTotal, error)
}

// Store is the full persistence surface shared by the ingestion pipeline,
// the retention sweeper, and the HTTP API.
type Store interface {
	SourceRepository
	CategoryRepository
	ArticleRepository
	RunRepository

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
	Close()
}
