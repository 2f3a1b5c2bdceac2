package repository

import (
	"context"

	"github.com/fastygo/taskflow/domain"
)

// ActivityRepository is the append-only audit store.
type ActivityRepository interface {
	// Append stores entry. Appending an id that already exists is a no-op.
	Append(ctx context.Context, entry *domain.ActivityLogEntry) error
	// ListByTask returns entries newest first, ties broken by the later id,
	// together with the unpaginated total.
	ListByTask(ctx context.Context, taskID string, limit, skip int) ([]domain.ActivityLogEntry, int, error)
}
