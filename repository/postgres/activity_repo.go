package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns the Postgres audit trail. Changes are kept in a
// json column so the recorded field order survives storage.
func NewActivityRepository(pool *pgxpool.Pool) repository.ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityLogEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidPayload
	}

	var changes interface{}
	if entry.Changes.Len() > 0 {
		raw, err := json.Marshal(entry.Changes)
		if err != nil {
			return err
		}
		changes = string(raw)
	}

	const query = `
	INSERT INTO activity_logs (id, task_id, actor_id, action, changes, description, occurred_at)
	VALUES ($1, $2, $3, $4, $5::json, $6, $7)
	ON CONFLICT (id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.TaskID,
		entry.ActorID,
		string(entry.Action),
		changes,
		entry.Description,
		entry.Timestamp,
	)
	return err
}

func (r *activityRepository) ListByTask(ctx context.Context, taskID string, limit, skip int) ([]domain.ActivityLogEntry, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity_logs WHERE task_id = $1`, taskID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
	SELECT id, task_id, actor_id, action, changes, description, occurred_at
	FROM activity_logs
	WHERE task_id = $1
	ORDER BY occurred_at DESC, id DESC
	LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, taskID, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []domain.ActivityLogEntry{}
	for rows.Next() {
		var (
			entry   domain.ActivityLogEntry
			changes *string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.ActorID,
			&entry.Action,
			&changes,
			&entry.Description,
			&entry.Timestamp,
		); err != nil {
			return nil, 0, err
		}
		if changes != nil {
			set := domain.NewChangeSet()
			if err := json.Unmarshal([]byte(*changes), set); err != nil {
				return nil, 0, fmt.Errorf("decode changes of %s: %w", entry.ID, err)
			}
			entry.Changes = set
		}
		entry.Timestamp = entry.Timestamp.UTC()
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}
