package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/newstide/newstide/internal/store"
)

// InsertArticle writes the article unless the (source_id, dedup_key) pair is
// already taken. The ON CONFLICT clause makes the insert all-or-nothing, so a
// concurrent retention sweep never observes a half-written row.
func (s *Store) InsertArticle(ctx context.Context, a store.Article) (bool, error) {
	query := `
		INSERT INTO articles (
			id, source_id, category_id, title, dedup_key, content, summary, url,
			published_at, crawled_at, importance_score, sentiment_score, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (source_id, dedup_key) DO NOTHING;
	`
	tag, err := s.db.Exec(ctx, query,
		a.ID,
		a.SourceID,
		a.CategoryID,
		a.Title,
		a.DedupKey,
		a.Content,
		a.Summary,
		a.URL,
		a.PublishedAt,
		a.CrawledAt,
		a.ImportanceScore,
		a.SentimentScore,
		a.Status,
	)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteArticlesBefore hard-removes active articles crawled at or before the
// cutoff (boundary inclusive).
func (s *Store) DeleteArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM articles WHERE status = 'active' AND crawled_at <= $1;`
	tag, err := s.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete articles before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// ArchiveArticlesBefore transitions eligible active articles to archived.
func (s *Store) ArchiveArticlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `UPDATE articles SET status = 'archived' WHERE status = 'active' AND crawled_at <= $1;`
	tag, err := s.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive articles before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

// CountActiveArticles returns the number of articles with status=active.
func (s *Store) CountActiveArticles(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM articles WHERE status = 'active';`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count active articles: %w", err)
	}
	return n, nil
}

// CountArticlesCrawledSince counts active articles crawled at or after since.
func (s *Store) CountArticlesCrawledSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	query := `SELECT COUNT(*) FROM articles WHERE status = 'active' AND crawled_at >= $1;`
	if err := s.db.QueryRow(ctx, query, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles since %s: %w", since.Format(time.RFC3339), err)
	}
	return n, nil
}
