package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/newstide/newstide/internal/clock"
)

// MockFetcher generates deterministic synthetic items without touching the
// network. The items flow through the exact same normalize/dedup/persist path
// as live ones, so re-running the same mock batch reports duplicates.
type MockFetcher struct {
	name     string
	baseURL  string
	category string
	clock    clock.Clock
}

// NewMockFetcher builds a synthetic fetcher for the named source.
func NewMockFetcher(name, baseURL, category string, clk clock.Clock) *MockFetcher {
	if category == "" {
		category = "general"
	}
	return &MockFetcher{name: name, baseURL: baseURL, category: category, clock: clk}
}

// Name returns the registry name of the source.
func (f *MockFetcher) Name() string { return f.name }

// BaseURL returns the source's canonical site URL.
func (f *MockFetcher) BaseURL() string { return f.baseURL }

// Fetch returns limit synthetic items (defaults to 3 when no cap is given).
// Titles are stable per source so repeated runs dedup against each other.
func (f *MockFetcher) Fetch(_ context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 3
	}
	slug := strings.ToLower(strings.ReplaceAll(f.name, " ", "-"))
	items := make([]Item, 0, limit)
	for i := 1; i <= limit; i++ {
		items = append(items, Item{
			Title:       fmt.Sprintf("%s sample story %d", f.name, i),
			URL:         fmt.Sprintf("%s/articles/%s-%d", f.baseURL, slug, i),
			Summary:     fmt.Sprintf("Synthetic summary %d for source %s.", i, f.name),
			Content:     fmt.Sprintf("Synthetic body text %d generated for source %s.", i, f.name),
			Category:    f.category,
			PublishedAt: f.clock.Now(),
		})
	}
	return items, nil
}
