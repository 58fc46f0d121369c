package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pixelforge/internal/domain"
)

// TaskRepositoryPG implements domain.TaskRepository.
type TaskRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a video task repository backed by PostgreSQL.
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepositoryPG {
	return &TaskRepositoryPG{pool: pool}
}

// Create inserts a new task record in the generating state.
func (r *TaskRepositoryPG) Create(ctx context.Context, rec *domain.TaskRecord) error {
	query := `
INSERT INTO video_tasks (id, task_id, provider, prompt, image_url, status)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.TaskID,
		rec.Provider,
		rec.Prompt,
		rec.ImageURL,
		rec.Status,
	)
	return err
}

// GetByID fetches a task record by its local identifier.
func (r *TaskRepositoryPG) GetByID(ctx context.Context, id string) (*domain.TaskRecord, error) {
	query := `
SELECT id, task_id, provider, prompt, image_url, status, result_url, error_message, created_at, updated_at
FROM video_tasks
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var rec domain.TaskRecord
	if err := row.Scan(
		&rec.ID,
		&rec.TaskID,
		&rec.Provider,
		&rec.Prompt,
		&rec.ImageURL,
		&rec.Status,
		&rec.ResultURL,
		&rec.ErrorMessage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// ListPending returns every record still awaiting a terminal status. Terminal
// records never appear here, which is what keeps them out of the tracker's
// next poll set.
func (r *TaskRepositoryPG) ListPending(ctx context.Context) ([]domain.TaskRecord, error) {
	query := `
SELECT id, task_id, provider, prompt, image_url, status, result_url, error_message, created_at, updated_at
FROM video_tasks
WHERE status IN ('queued', 'generating')
ORDER BY created_at;
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []domain.TaskRecord
	for rows.Next() {
		var rec domain.TaskRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.TaskID,
			&rec.Provider,
			&rec.Prompt,
			&rec.ImageURL,
			&rec.Status,
			&rec.ResultURL,
			&rec.ErrorMessage,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, rec)
	}
	return items, rows.Err()
}

// MarkTerminal transitions a pending record to a terminal status. The guard in
// the WHERE clause enforces the monotonic lifecycle: a record that already
// reached a terminal status is left untouched and false is returned.
func (r *TaskRepositoryPG) MarkTerminal(ctx context.Context, id string, status domain.TaskStatus, resultURL, errMsg string) (bool, error) {
	if !status.Terminal() {
		return false, errors.New("repo: status is not terminal")
	}
	query := `
UPDATE video_tasks
SET status = $2,
    result_url = $3,
    error_message = $4,
    updated_at = NOW()
WHERE id = $1
  AND status IN ('queued', 'generating');
`
	tag, err := r.pool.Exec(ctx, query, id, status, resultURL, errMsg)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var _ domain.TaskRepository = (*TaskRepositoryPG)(nil)
