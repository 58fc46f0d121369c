package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pixelforge/internal/domain"
)

// GenerationRepositoryPG implements domain.GenerationRepository.
type GenerationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationRepository creates a history repository backed by PostgreSQL.
func NewGenerationRepository(pool *pgxpool.Pool) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{pool: pool}
}

// Create inserts a new history record.
func (r *GenerationRepositoryPG) Create(ctx context.Context, gen *domain.Generation) error {
	query := `
INSERT INTO generations (id, prompt, provider, model, aspect_ratio, seed, result_url, storage_key, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
`
	_, err := r.pool.Exec(ctx, query,
		gen.ID,
		gen.Prompt,
		gen.Provider,
		gen.Model,
		gen.AspectRatio,
		gen.Seed,
		gen.ResultURL,
		gen.StorageKey,
		gen.ErrorMessage,
	)
	return err
}

// List returns the most recent history records, newest first.
func (r *GenerationRepositoryPG) List(ctx context.Context, limit int) ([]domain.Generation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
SELECT id, prompt, provider, model, aspect_ratio, seed, result_url, storage_key, error_message, created_at
FROM generations
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.Generation
	for rows.Next() {
		var gen domain.Generation
		if err := rows.Scan(
			&gen.ID,
			&gen.Prompt,
			&gen.Provider,
			&gen.Model,
			&gen.AspectRatio,
			&gen.Seed,
			&gen.ResultURL,
			&gen.StorageKey,
			&gen.ErrorMessage,
			&gen.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, gen)
	}
	return items, rows.Err()
}

// GetByID fetches a single history record.
func (r *GenerationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	query := `
SELECT id, prompt, provider, model, aspect_ratio, seed, result_url, storage_key, error_message, created_at
FROM generations
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var gen domain.Generation
	if err := row.Scan(
		&gen.ID,
		&gen.Prompt,
		&gen.Provider,
		&gen.Model,
		&gen.AspectRatio,
		&gen.Seed,
		&gen.ResultURL,
		&gen.StorageKey,
		&gen.ErrorMessage,
		&gen.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &gen, nil
}

// Delete removes a record from history.
func (r *GenerationRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM generations WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteOlderThan prunes records past the retention window and reports how
// many rows were removed.
func (r *GenerationRepositoryPG) DeleteOlderThan(ctx context.Context, ageDays int) (int64, error) {
	query := `
DELETE FROM generations
WHERE created_at < NOW() - make_interval(days => $1);
`
	tag, err := r.pool.Exec(ctx, query, ageDays)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ domain.GenerationRepository = (*GenerationRepositoryPG)(nil)
