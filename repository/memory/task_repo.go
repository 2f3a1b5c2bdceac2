package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

type taskRecord struct {
	task domain.Task
	seq  int64
}

// TaskRepository keeps tasks in process memory.
type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*taskRecord
	seq   int64
	now   func() time.Time
}

// NewTaskRepository returns an empty in-memory task store.
func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]*taskRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(&rec.task), nil
}

func (r *TaskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	r.mu.RLock()
	matched := make([]*taskRecord, 0, len(r.tasks))
	for _, rec := range r.tasks {
		if matchesFilter(&rec.task, filter) {
			matched = append(matched, &taskRecord{task: *cloneTask(&rec.task), seq: rec.seq})
		}
	}
	r.mu.RUnlock()

	sortRecords(matched, repository.NormalizeSort(filter.Sort))

	total := len(matched)
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	tasks := make([]domain.Task, 0, end-start)
	for _, rec := range matched[start:end] {
		tasks = append(tasks, rec.task)
	}
	return tasks, total, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[task.ID]; exists {
		return nil, domain.NewError(domain.ErrCodeConflict, "task already exists")
	}
	now := r.now()
	task.CreatedAt = now
	task.UpdatedAt = now
	r.seq++
	r.tasks[task.ID] = &taskRecord{task: *cloneTask(task), seq: r.seq}
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tasks[task.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	task.CreatedBy = rec.task.CreatedBy
	task.CreatedAt = rec.task.CreatedAt
	task.UpdatedAt = r.now()
	comments := rec.task.Comments
	rec.task = *cloneTask(task)
	rec.task.Comments = comments
	return nil
}

func (r *TaskRepository) AppendComment(ctx context.Context, taskID string, comment domain.Comment) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	rec.task.Comments = append(rec.task.Comments, comment)
	rec.task.UpdatedAt = r.now()
	return append([]domain.Comment(nil), rec.task.Comments...), nil
}

func (r *TaskRepository) FindOwned(ctx context.Context, ids []string, ownerID string) ([]domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Task
	for _, id := range uniqueIDs(ids) {
		rec, ok := r.tasks[id]
		if !ok || rec.task.IsDeleted || rec.task.CreatedBy != ownerID {
			continue
		}
		out = append(out, *cloneTask(&rec.task))
	}
	return out, nil
}

func (r *TaskRepository) BulkUpdate(ctx context.Context, ids []string, ownerID string, change repository.BulkChange) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	var affected []string
	for _, id := range uniqueIDs(ids) {
		rec, ok := r.tasks[id]
		if !ok || rec.task.IsDeleted || rec.task.CreatedBy != ownerID {
			continue
		}
		if change.Status != nil {
			rec.task.Status = *change.Status
		}
		if change.Delete {
			rec.task.IsDeleted = true
		}
		rec.task.UpdatedAt = now
		affected = append(affected, id)
	}
	return affected, nil
}

func (r *TaskRepository) Stats(ctx context.Context, ownerID string, now time.Time) (*domain.TaskStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byStatus := map[string]int{}
	byPriority := map[string]int{}
	stats := &domain.TaskStats{}
	for _, rec := range r.tasks {
		t := &rec.task
		if t.IsDeleted || (ownerID != "" && t.CreatedBy != ownerID) {
			continue
		}
		stats.Total++
		byStatus[string(t.Status)]++
		byPriority[string(t.Priority)]++
		if t.IsOverdue(now) {
			stats.Overdue++
		}
	}
	stats.ByStatus = groupCounts(byStatus)
	stats.ByPriority = groupCounts(byPriority)
	return stats, nil
}

func (r *TaskRepository) Recent(ctx context.Context, limit int) ([]domain.Task, error) {
	page, _, err := r.List(ctx, repository.TaskFilter{Sort: repository.SortCreatedAt, Limit: limit})
	return page, err
}

func matchesFilter(t *domain.Task, f repository.TaskFilter) bool {
	if t.IsDeleted {
		return false
	}
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.Assignee != "" && t.Assignee != f.Assignee {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

func sortRecords(recs []*taskRecord, key string) {
	newerFirst := func(a, b *taskRecord) bool {
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		return a.seq > b.seq
	}

	var less func(a, b *taskRecord) bool
	switch key {
	case repository.SortDueDate:
		less = func(a, b *taskRecord) bool {
			da, db := a.task.DueDate, b.task.DueDate
			switch {
			case da == nil && db == nil:
				return newerFirst(a, b)
			case da == nil:
				return false
			case db == nil:
				return true
			case !da.Equal(*db):
				return da.Before(*db)
			}
			return newerFirst(a, b)
		}
	case repository.SortPriority:
		less = func(a, b *taskRecord) bool {
			ra, rb := a.task.Priority.Rank(), b.task.Priority.Rank()
			if ra != rb {
				return ra < rb
			}
			return newerFirst(a, b)
		}
	case repository.SortUpdatedAt:
		less = func(a, b *taskRecord) bool {
			if !a.task.UpdatedAt.Equal(b.task.UpdatedAt) {
				return a.task.UpdatedAt.After(b.task.UpdatedAt)
			}
			return newerFirst(a, b)
		}
	case repository.SortTitle:
		less = func(a, b *taskRecord) bool {
			if a.task.Title != b.task.Title {
				return a.task.Title > b.task.Title
			}
			return newerFirst(a, b)
		}
	case repository.SortStatus:
		less = func(a, b *taskRecord) bool {
			if a.task.Status != b.task.Status {
				return a.task.Status > b.task.Status
			}
			return newerFirst(a, b)
		}
	default:
		less = newerFirst
	}

	sort.SliceStable(recs, func(i, j int) bool { return less(recs[i], recs[j]) })
}

func groupCounts(counts map[string]int) []domain.GroupCount {
	out := make([]domain.GroupCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, domain.GroupCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	if t.Tags != nil {
		c.Tags = append([]string{}, t.Tags...)
	}
	if t.Comments != nil {
		c.Comments = append([]domain.Comment{}, t.Comments...)
	}
	return &c
}
