package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/newstide/newstide/internal/store"
)

// GetOrCreateSource resolves a source by name. The insert and the read are a
// single statement, so concurrent callers for a new name race on the unique
// index rather than on application code and all observe the same row.
func (s *Store) GetOrCreateSource(ctx context.Context, name, baseURL string) (store.Source, error) {
	query := `
		INSERT INTO sources (id, name, base_url, active)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (name) DO UPDATE SET base_url = EXCLUDED.base_url
		RETURNING id, name, base_url, active;
	`
	var src store.Source
	err := s.db.QueryRow(ctx, query, uuid.New(), name, baseURL).
		Scan(&src.ID, &src.Name, &src.BaseURL, &src.Active)
	if err != nil {
		return store.Source{}, fmt.Errorf("get or create source %q: %w", name, err)
	}
	return src, nil
}

// DeactivateSource flips a source to inactive.
func (s *Store) DeactivateSource(ctx context.Context, name string) error {
	tag, err := s.db.Exec(ctx, `UPDATE sources SET active = FALSE WHERE name = $1;`, name)
	if err != nil {
		return fmt.Errorf("deactivate source %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CountSources returns the number of registered sources.
func (s *Store) CountSources(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM sources;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sources: %w", err)
	}
	return n, nil
}

// GetOrCreateCategory resolves a category by name with the same atomic
// insert-if-absent discipline as GetOrCreateSource.
func (s *Store) GetOrCreateCategory(ctx context.Context, name, description string) (store.Category, error) {
	// An empty incoming description never clobbers a stored one; ingestion
	// resolves categories by name only.
	query := `
		INSERT INTO categories (id, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE
		SET description = COALESCE(NULLIF(EXCLUDED.description, ''), categories.description)
		RETURNING id, name, description;
	`
	var cat store.Category
	err := s.db.QueryRow(ctx, query, uuid.New(), name, description).
		Scan(&cat.ID, &cat.Name, &cat.Description)
	if err != nil {
		return store.Category{}, fmt.Errorf("get or create category %q: %w", name, err)
	}
	return cat, nil
}

// CountCategories returns the number of registered categories.
func (s *Store) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return n, nil
}
