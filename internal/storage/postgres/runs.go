package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/newstide/newstide/internal/store"
)

// RecordRun upserts one ledger entry. The first write inserts the running
// row; the completion write lands on the same ID and finalizes counts and
// status.
func (s *Store) RecordRun(ctx context.Context, run store.CrawlRun) error {
	query := `
		INSERT INTO crawl_runs (
			id, kind, source_id, started_at, finished_at, requested_count,
			fetched_count, new_count, duplicate_count, deleted_count, error_count, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			fetched_count = EXCLUDED.fetched_count,
			new_count = EXCLUDED.new_count,
			duplicate_count = EXCLUDED.duplicate_count,
			deleted_count = EXCLUDED.deleted_count,
			error_count = EXCLUDED.error_count,
			status = EXCLUDED.status;
	`
	_, err := s.db.Exec(ctx, query,
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
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

const runColumns = `id, kind, source_id, started_at, finished_at, requested_count,
		fetched_count, new_count, duplicate_count, deleted_count, error_count, status`

func scanRun(row pgx.Row) (store.CrawlRun, error) {
	var run store.CrawlRun
	err := row.Scan(
		&run.ID,
		&run.Kind,
		&run.SourceID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.RequestedCount,
		&run.FetchedCount,
		&run.NewCount,
		&run.DuplicateCount,
		&run.DeletedCount,
		&run.ErrorCount,
		&run.Status,
	)
	return run, err
}

// RecentRuns returns up to limit ledger entries, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]store.CrawlRun, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs ORDER BY started_at DESC LIMIT $1;`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	defer rows.Close()

	var runs []store.CrawlRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recent finished run of the given kind.
func (s *Store) LastRun(ctx context.Context, kind store.RunKind) (store.CrawlRun, error) {
	query := `SELECT ` + runColumns + ` FROM crawl_runs
		WHERE kind = $1 AND finished_at IS NOT NULL
		ORDER BY started_at DESC LIMIT 1;`
	run, err := scanRun(s.db.QueryRow(ctx, query, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.CrawlRun{}, store.ErrNotFound
		}
		return store.CrawlRun{}, fmt.Errorf("last %s run: %w", kind, err)
	}
	return run, nil
}

// SourceTotals maps each source name to its active article count.
func (s *Store) SourceTotals(ctx context.Context) ([]store.SourceTotal, error) {
	query := `
		SELECT s.name, COUNT(a.id)
		FROM sources s
		LEFT JOIN articles a ON a.source_id = s.id AND a.status = 'active'
		GROUP BY s.name
		ORDER BY COUNT(a.id) DESC, s.name ASC;
	`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("source totals: %w", err)
	}
	defer rows.Close()

	var totals []store.SourceTotal
	for rows.Next() {
		var t store.SourceTotal
		if err := rows.Scan(&t.Source, &t.Count); err != nil {
			return nil, fmt.Errorf("scan source total: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source totals: %w", err)
	}
	return totals, nil
}
