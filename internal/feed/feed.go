// Package feed defines the fetch adapter boundary of the ingestion pipeline
// and its two implementations: a Colly-backed live scraper and a synthetic
// mock used for tests and offline runs.
package feed

import (
	"context"
	"time"
)

// Item is one candidate article as produced by a fetch adapter, before
// normalization and deduplication.
type Item struct {
	Title    string
	URL      string
	Summary  string
	Content  string
	Category string
	// PublishedAt is zero when the upstream feed supplies no timestamp.
	PublishedAt time.Time
	// Importance and Sentiment override the configured defaults when set.
	Importance *float64
	Sentiment  *float64
}

// Fetcher produces candidate items for one source.
type Fetcher interface {
	// Name is the registry name of the source.
	Name() string
	// BaseURL is the source's canonical site URL.
	BaseURL() string
	// Fetch returns up to limit candidate items. limit <= 0 means no cap.
	Fetch(ctx context.Context, limit int) ([]Item, error)
}
