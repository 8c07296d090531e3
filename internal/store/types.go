// Package store declares the domain types and repository interfaces for the
// ingestion-and-retention pipeline. Implementations live under
// internal/storage; keeping the interfaces here decouples the pipeline and
// the HTTP surface from any particular backend.
package store

import (
	"time"

	"github.com/google/uuid"
)

// ArticleStatus mirrors the articles.status column.
type ArticleStatus string

// Article statuses. Transitions are one way: an active article may become
// archived or deleted via the retention sweeper, never the reverse.
const (
	ArticleActive   ArticleStatus = "active"
	ArticleArchived ArticleStatus = "archived"
	ArticleDeleted  ArticleStatus = "deleted"
)

// RunKind distinguishes the two producers that write to the crawl ledger.
type RunKind string

// Ledger run kinds.
const (
	RunKindIngest    RunKind = "ingest"
	RunKindRetention RunKind = "retention"
)

// RunStatus mirrors the crawl_runs.status column.
type RunStatus string

// Run statuses. A run is "partial" when some items failed but the run itself
// completed; "failed" is reserved for runs that could not do any work at all.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// Source is a registered news origin. Sources are created on first encounter
// by name and never deleted, only deactivated.
type Source struct {
	ID      uuid.UUID
	Name    string
	BaseURL string
	Active  bool
}

// Category is a registered article category with the same get-or-create
// lifecycle as Source.
type Category struct {
	ID          uuid.UUID
	Name        string
	Description string
}

// Article is one stored news item.
type Article struct {
	ID         uuid.UUID
	SourceID   uuid.UUID
	CategoryID uuid.UUID
	Title      string
	// DedupKey is derived from the canonicalized title; no two articles of
	// the same source may share it.
	DedupKey string
	Content  string
	Summary  string
	URL      string
	// PublishedAt is the upstream publication time, if the feed supplied one.
	PublishedAt time.Time
	// CrawledAt is set once at insertion and never mutated; retention
	// eligibility is computed from it.
	CrawledAt       time.Time
	ImportanceScore float64
	SentimentScore  float64
	Status          ArticleStatus
}

// CrawlRun is one ledger entry summarizing an ingestion run or a retention
// sweep. Rows are immutable once FinishedAt is set.
type CrawlRun struct {
	ID   uuid.UUID
	Kind RunKind
	// SourceID is nil when the run covered all sources.
	SourceID       *uuid.UUID
	StartedAt      time.Time
	FinishedAt     *time.Time
	RequestedCount int
	FetchedCount   int
	NewCount       int
	DuplicateCount int
	DeletedCount   int
	ErrorCount     int
	Status         RunStatus
}

// SourceTotal is one row of the per-source article aggregate.
type SourceTotal struct {
	Source string
	Count  int64
}
