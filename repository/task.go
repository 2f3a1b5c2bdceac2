package repository

import (
	"context"
	"time"

	"github.com/fastygo/taskflow/domain"
)

// Sort keys understood by TaskRepository.List.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortDueDate   = "dueDate"
	SortPriority  = "priority"
	SortTitle     = "title"
	SortStatus    = "status"
)

// TaskFilter narrows task listings. Soft-deleted tasks are never returned.
type TaskFilter struct {
	CreatedBy string
	Status    domain.Status
	Priority  domain.Priority
	Assignee  string
	Search    string
	Sort      string
	Limit     int
	Offset    int
}

// NormalizeSort maps a caller sort key onto a supported one. Unknown keys
// fall back to newest-created-first.
func NormalizeSort(sort string) string {
	switch sort {
	case SortCreatedAt, SortUpdatedAt, SortDueDate, SortPriority, SortTitle, SortStatus:
		return sort
	}
	return SortCreatedAt
}

// BulkChange is a set-based mutation applied to many tasks at once.
type BulkChange struct {
	Status *domain.Status
	Delete bool
}

type TaskRepository interface {
	// GetByID returns the task even when soft-deleted.
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	// List returns one page of live tasks and the total match count.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update persists the mutable fields and refreshes UpdatedAt.
	Update(ctx context.Context, task *domain.Task) error
	AppendComment(ctx context.Context, taskID string, comment domain.Comment) ([]domain.Comment, error)
	// FindOwned returns the live tasks among ids created by ownerID.
	FindOwned(ctx context.Context, ids []string, ownerID string) ([]domain.Task, error)
	// BulkUpdate applies change to the live tasks among ids created by ownerID
	// and returns the ids it actually changed.
	BulkUpdate(ctx context.Context, ids []string, ownerID string, change BulkChange) ([]string, error)
	// Stats aggregates live tasks; an empty ownerID covers every owner.
	Stats(ctx context.Context, ownerID string, now time.Time) (*domain.TaskStats, error)
	// Recent returns the newest live tasks across all owners.
	Recent(ctx context.Context, limit int) ([]domain.Task, error)
}
