// Package memory provides an in-memory store.Store for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newstide/newstide/internal/store"
)

type articleKey struct {
	sourceID uuid.UUID
	dedupKey string
}

// Store keeps the four collections behind one RWMutex. Writers never hold
// the lock across anything slow, so read paths do not starve.
type Store struct {
	mu         sync.RWMutex
	sources    map[string]store.Source
	categories map[string]store.Category
	articles   map[articleKey]store.Article
	runs       []store.CrawlRun
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		sources:    make(map[string]store.Source),
		categories: make(map[string]store.Category),
		articles:   make(map[articleKey]store.Article),
	}
}

// GetOrCreateSource resolves a source by name, creating it on first use.
func (s *Store) GetOrCreateSource(_ context.Context, name, baseURL string) (store.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src, ok := s.sources[name]; ok {
		return src, nil
	}
	src := store.Source{
		ID:      uuid.New(),
		Name:    name,
		BaseURL: baseURL,
		Active:  true,
	}
	s.sources[name] = src
	return src, nil
}

// DeactivateSource flips a source to inactive.
func (s *Store) DeactivateSource(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.sources[name]
	if !ok {
		return store.ErrNotFound
	}
	src.Active = false
	s.sources[name] = src
	return nil
}

// CountSources returns the number of registered sources.
func (s *Store) CountSources(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sources)), nil
}

// GetOrCreateCategory resolves a category by name, creating it on first use.
func (s *Store) GetOrCreateCategory(_ context.Context, name, description string) (store.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cat, ok := s.categories[name]; ok {
		// An empty incoming description never clobbers a stored one.
		if description != "" && cat.Description != description {
			cat.Description = description
			s.categories[name] = cat
		}
		return cat, nil
	}
	cat := store.Category{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
	}
	s.categories[name] = cat
	return cat, nil
}

// CountCategories returns the number of registered categories.
func (s *Store) CountCategories(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.categories)), nil
}

// InsertArticle writes the article unless its (source, dedup key) is taken.
func (s *Store) InsertArticle(_ context.Context, article store.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := articleKey{sourceID: article.SourceID, dedupKey: article.DedupKey}
	if _, exists := s.articles[key]; exists {
		return false, nil
	}
	s.articles[key] = article
	return true, nil
}

// DeleteArticlesBefore removes active articles crawled at or before cutoff.
func (s *Store) DeleteArticlesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for key, a := range s.articles {
		if a.Status == store.ArticleActive && !a.CrawledAt.After(cutoff) {
			delete(s.articles, key)
			removed++
		}
	}
	return removed, nil
}

// ArchiveArticlesBefore transitions eligible active articles to archived.
func (s *Store) ArchiveArticlesBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var archived int64
	for key, a := range s.articles {
		if a.Status == store.ArticleActive && !a.CrawledAt.After(cutoff) {
			a.Status = store.ArticleArchived
			s.articles[key] = a
			archived++
		}
	}
	return archived, nil
}

// CountActiveArticles returns the number of articles with status=active.
func (s *Store) CountActiveArticles(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.articles {
		if a.Status == store.ArticleActive {
			n++
		}
	}
	return n, nil
}

// CountArticlesCrawledSince counts active articles crawled at or after since.
func (s *Store) CountArticlesCrawledSince(_ context.Context, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.articles {
		if a.Status == store.ArticleActive && !a.CrawledAt.Before(since) {
			n++
		}
	}
	return n, nil
}

// RecordRun upserts a ledger entry by run ID, so the completion write
// finalizes the running row instead of appending a second one.
func (s *Store) RecordRun(_ context.Context, run store.CrawlRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = run
			return nil
		}
	}
	s.runs = append(s.runs, run)
	return nil
}

// RecentRuns returns up to limit ledger entries, most recent first.
func (s *Store) RecentRuns(_ context.Context, limit int) ([]store.CrawlRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.CrawlRun, len(s.runs))
	copy(out, s.runs)
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LastRun returns the most recent finished run of the given kind.
func (s *Store) LastRun(_ context.Context, kind store.RunKind) (store.CrawlRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *store.CrawlRun
	for i := range s.runs {
		run := s.runs[i]
		if run.Kind != kind || run.FinishedAt == nil {
			continue
		}
		if best == nil || run.StartedAt.After(best.StartedAt) {
			best = &run
		}
	}
	if best == nil {
		return store.CrawlRun{}, store.ErrNotFound
	}
	return *best, nil
}

// SourceTotals maps source name to its active article count. Sources with no
// articles still appear with a zero count.
func (s *Store) SourceTotals(_ context.Context) ([]store.SourceTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[uuid.UUID]int64)
	for _, a := range s.articles {
		if a.Status == store.ArticleActive {
			counts[a.SourceID]++
		}
	}
	totals := make([]store.SourceTotal, 0, len(s.sources))
	for _, src := range s.sources {
		totals = append(totals, store.SourceTotal{Source: src.Name, Count: counts[src.ID]})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Count != totals[j].Count {
			return totals[i].Count > totals[j].Count
		}
		return totals[i].Source < totals[j].Source
	})
	return totals, nil
}

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}
