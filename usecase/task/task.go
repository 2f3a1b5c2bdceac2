package task

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/logger"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/usecase/activity"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// CreateInput carries the caller-supplied fields of a new task.
type CreateInput struct {
	Title       string
	Description string
	Priority    domain.Priority
	DueDate     *time.Time
	Assignee    string
	Tags        []string
}

// ListQuery carries the filters, sort key and page of a task listing.
type ListQuery struct {
	Status   domain.Status
	Priority domain.Priority
	Assignee string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

type UseCase struct {
	tasks  repository.TaskRepository
	users  repository.UserRepository
	audit  *activity.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func New(tasks repository.TaskRepository, users repository.UserRepository, audit *activity.Recorder, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		users:  users,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *UseCase) CreateTask(ctx context.Context, p domain.Principal, in CreateInput) (*domain.TaskView, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    in.Priority,
		DueDate:     copyTime(in.DueDate),
		CreatedBy:   p.ID,
		Assignee:    in.Assignee,
		Tags:        normalizeTags(in.Tags),
	}
	task.ApplyDefaults()
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := uc.checkAssignee(ctx, task.Assignee); err != nil {
		return nil, err
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, err
	}

	uc.audit.Record(ctx, created.ID, p.ID, domain.ActionCreated, nil,
		fmt.Sprintf("Task created by %s", p.DisplayName()))

	return uc.present(ctx, created), nil
}

// GetTask returns a live task to its creator or to an administrator.
// Administrators also see soft-deleted tasks.
func (uc *UseCase) GetTask(ctx context.Context, p domain.Principal, id string) (*domain.TaskView, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsDeleted && !p.IsAdmin() {
		return nil, domain.ErrTaskNotFound
	}
	if !task.OwnedBy(p.ID) && !p.IsAdmin() {
		return nil, domain.Forbidden("not authorized to view this task")
	}
	return uc.present(ctx, task), nil
}

// UpdateTask applies the supplied fields and records an audit entry when at
// least one of them actually changed.
func (uc *UseCase) UpdateTask(ctx context.Context, p domain.Principal, id string, patch domain.TaskPatch) (*domain.TaskView, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.OwnedBy(p.ID) && !p.IsAdmin() {
		return nil, domain.Forbidden("not authorized to update this task")
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}
	if patch.Assignee.Set && patch.Assignee.Value != task.Assignee {
		if err := uc.checkAssignee(ctx, patch.Assignee.Value); err != nil {
			return nil, err
		}
	}

	changes := applyPatch(task, patch)
	if changes.Len() == 0 {
		return uc.present(ctx, task), nil
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	uc.audit.Record(ctx, task.ID, p.ID, domain.ActionUpdated, changes,
		fmt.Sprintf("Task updated by %s", p.DisplayName()))

	return uc.present(ctx, task), nil
}

// DeleteTask soft-deletes a task. Deleting an already deleted task is a no-op.
func (uc *UseCase) DeleteTask(ctx context.Context, p domain.Principal, id string) error {
	if err := requireActive(p); err != nil {
		return err
	}
	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !task.OwnedBy(p.ID) && !p.IsAdmin() {
		return domain.Forbidden("not authorized to delete this task")
	}
	if task.IsDeleted {
		return nil
	}

	task.IsDeleted = true
	if err := uc.tasks.Update(ctx, task); err != nil {
		return err
	}

	uc.audit.Record(ctx, task.ID, p.ID, domain.ActionDeleted, nil,
		fmt.Sprintf("Task deleted by %s", p.DisplayName()))
	return nil
}

// AddComment appends a comment. The creator, the assignee and administrators
// may comment.
func (uc *UseCase) AddComment(ctx context.Context, p domain.Principal, id, content string) ([]domain.CommentView, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.Validation("comment content is required")
	}
	if utf8.RuneCountInString(content) > domain.MaxCommentLength {
		return nil, domain.Validation("comment cannot exceed %d characters", domain.MaxCommentLength)
	}

	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.OwnedBy(p.ID) && (task.Assignee == "" || task.Assignee != p.ID) && !p.IsAdmin() {
		return nil, domain.Forbidden("not authorized to comment on this task")
	}

	comment := domain.Comment{
		ID:        uuid.NewString(),
		AuthorID:  p.ID,
		Content:   content,
		CreatedAt: uc.now(),
	}
	comments, err := uc.tasks.AppendComment(ctx, task.ID, comment)
	if err != nil {
		return nil, err
	}

	uc.audit.Record(ctx, task.ID, p.ID, domain.ActionCommented, nil,
		fmt.Sprintf("Comment added by %s", p.DisplayName()))

	task.Comments = comments
	return uc.present(ctx, task).Comments, nil
}

// BulkDelete soft-deletes the caller's own tasks among ids. Administrators get
// no override here.
func (uc *UseCase) BulkDelete(ctx context.Context, p domain.Principal, ids []string) (int, error) {
	if err := requireActive(p); err != nil {
		return 0, err
	}
	owned, err := uc.ownedSubset(ctx, p, ids)
	if err != nil {
		return 0, err
	}

	affected, err := uc.tasks.BulkUpdate(ctx, taskIDs(owned), p.ID, repository.BulkChange{Delete: true})
	if err != nil {
		return 0, err
	}

	description := fmt.Sprintf("Task deleted by %s", p.DisplayName())
	for _, id := range affected {
		uc.audit.Record(ctx, id, p.ID, domain.ActionDeleted, nil, description)
	}
	return len(affected), nil
}

// BulkUpdateStatus sets status on the caller's own tasks among ids.
func (uc *UseCase) BulkUpdateStatus(ctx context.Context, p domain.Principal, ids []string, status domain.Status) (int, error) {
	if err := requireActive(p); err != nil {
		return 0, err
	}
	if status == "" {
		return 0, domain.Validation("status is required")
	}
	if !status.Valid() {
		return 0, domain.Validation("invalid status %q", status)
	}
	owned, err := uc.ownedSubset(ctx, p, ids)
	if err != nil {
		return 0, err
	}

	affected, err := uc.tasks.BulkUpdate(ctx, taskIDs(owned), p.ID, repository.BulkChange{Status: &status})
	if err != nil {
		return 0, err
	}

	description := fmt.Sprintf("Status changed to %s", status)
	for _, id := range affected {
		changes := domain.NewChangeSet()
		changes.Set(fieldStatus, string(status))
		uc.audit.Record(ctx, id, p.ID, domain.ActionStatusChanged, changes, description)
	}
	return len(affected), nil
}

// ListTasks returns one page of the caller's own live tasks, whatever the
// caller's role.
func (uc *UseCase) ListTasks(ctx context.Context, p domain.Principal, q ListQuery) (*domain.TaskPage, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, domain.Validation("invalid status %q", q.Status)
	}
	if q.Priority != "" && !q.Priority.Valid() {
		return nil, domain.Validation("invalid priority %q", q.Priority)
	}

	page, limit := normalizePage(q.Page, q.Limit)
	filter := repository.TaskFilter{
		CreatedBy: p.ID,
		Status:    q.Status,
		Priority:  q.Priority,
		Assignee:  q.Assignee,
		Search:    strings.TrimSpace(q.Search),
		Sort:      repository.NormalizeSort(q.Sort),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	tasks, total, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &domain.TaskPage{
		Tasks:      uc.presentAll(ctx, tasks),
		Pagination: domain.NewPagination(total, page, limit),
	}, nil
}

// Stats summarises the caller's live tasks.
func (uc *UseCase) Stats(ctx context.Context, p domain.Principal) (*domain.TaskStats, error) {
	if err := requireActive(p); err != nil {
		return nil, err
	}
	return uc.tasks.Stats(ctx, p.ID, uc.now())
}

func (uc *UseCase) ownedSubset(ctx context.Context, p domain.Principal, ids []string) ([]domain.Task, error) {
	if len(ids) == 0 {
		return nil, domain.Validation("task IDs array is required")
	}
	owned, err := uc.tasks.FindOwned(ctx, ids, p.ID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, domain.ErrNoTasksAuthorized
	}
	return owned, nil
}

func (uc *UseCase) checkAssignee(ctx context.Context, assignee string) error {
	if assignee == "" || uc.users == nil {
		return nil
	}
	if _, err := uc.users.GetByID(ctx, assignee); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return domain.Validation("assignee %s does not exist", assignee)
		}
		return err
	}
	return nil
}

func (uc *UseCase) present(ctx context.Context, t *domain.Task) *domain.TaskView {
	return domain.NewTaskView(t, uc.lookup(ctx, []domain.Task{*t}), uc.now())
}

func (uc *UseCase) presentAll(ctx context.Context, tasks []domain.Task) []*domain.TaskView {
	lookup := uc.lookup(ctx, tasks)
	now := uc.now()
	views := make([]*domain.TaskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, domain.NewTaskView(&tasks[i], lookup, now))
	}
	return views
}

// lookup loads every user referenced by tasks in one query. A failed lookup
// degrades to bare ids.
func (uc *UseCase) lookup(ctx context.Context, tasks []domain.Task) func(string) *domain.UserRef {
	refs := make(map[string]*domain.UserRef)
	if uc.users != nil {
		var ids []string
		for _, t := range tasks {
			ids = append(ids, t.CreatedBy)
			if t.Assignee != "" {
				ids = append(ids, t.Assignee)
			}
			for _, c := range t.Comments {
				ids = append(ids, c.AuthorID)
			}
		}
		users, err := uc.users.GetMany(ctx, ids)
		if err != nil {
			logger.WithRequestID(ctx, uc.logger).Warn("user lookup failed", zap.Error(err))
		}
		for i := range users {
			refs[users[i].ID] = users[i].Ref()
		}
	}
	return func(id string) *domain.UserRef { return refs[id] }
}

func requireActive(p domain.Principal) error {
	if p.ID == "" || !p.IsActive {
		return domain.ErrUnauthorized
	}
	return nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit < 1:
		limit = 1
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	return page, limit
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ids
}
