package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

// ActivityRepository keeps the audit trail in process memory.
type ActivityRepository struct {
	mu      sync.RWMutex
	entries []domain.ActivityLogEntry
	ids     map[string]struct{}
	// failWith, when set, makes Append fail; used to exercise best-effort paths.
	failWith error
}

func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{ids: make(map[string]struct{})}
}

var _ repository.ActivityRepository = (*ActivityRepository)(nil)

// FailAppends makes subsequent appends return err until called with nil.
func (r *ActivityRepository) FailAppends(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

func (r *ActivityRepository) Append(ctx context.Context, entry *domain.ActivityLogEntry) error {
	if entry == nil || entry.ID == "" || entry.TaskID == "" || entry.ActorID == "" {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	if _, ok := r.ids[entry.ID]; ok {
		return nil
	}
	r.ids[entry.ID] = struct{}{}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *ActivityRepository) ListByTask(ctx context.Context, taskID string, limit, skip int) ([]domain.ActivityLogEntry, int, error) {
	r.mu.RLock()
	var matched []domain.ActivityLogEntry
	for _, e := range r.entries {
		if e.TaskID == taskID {
			matched = append(matched, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return a.ID > b.ID
	})

	total := len(matched)
	if skip > total {
		skip = total
	}
	end := total
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return matched[skip:end], total, nil
}

// All returns every stored entry in append order.
func (r *ActivityRepository) All() []domain.ActivityLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ActivityLogEntry(nil), r.entries...)
}
