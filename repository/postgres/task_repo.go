package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/repository"
)

const taskColumns = `id, title, description, status, priority, due_date, created_by, assignee, tags, comments, is_deleted, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	where, args := buildTaskWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query, args := buildListQuery(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	tasks, err := collectTasks(rows)
	return tasks, total, err
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, title, description, status, priority, due_date, created_by, assignee, tags, comments)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '[]'::jsonb)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		task.CreatedBy,
		nullString(task.Assignee),
		nonNilStrings(task.Tags),
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, domain.NewError(domain.ErrCodeConflict, "task already exists")
		}
		return nil, err
	}

	task.Comments = []domain.Comment{}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $2,
		description = $3,
		status = $4,
		priority = $5,
		due_date = $6,
		assignee = $7,
		tags = $8,
		is_deleted = $9,
		updated_at = NOW()
	WHERE id = $1
	RETURNING created_by, created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		nullTime(task.DueDate),
		nullString(task.Assignee),
		nonNilStrings(task.Tags),
		task.IsDeleted,
	).Scan(&task.CreatedBy, &task.CreatedAt, &task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) AppendComment(ctx context.Context, taskID string, comment domain.Comment) ([]domain.Comment, error) {
	payload, err := json.Marshal([]domain.Comment{comment})
	if err != nil {
		return nil, err
	}

	const query = `
	UPDATE tasks
	SET comments = comments || $2::jsonb,
		updated_at = NOW()
	WHERE id = $1
	RETURNING comments
	`

	var raw []byte
	if err := r.pool.QueryRow(ctx, query, taskID, payload).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return decodeComments(raw)
}

func (r *taskRepository) FindOwned(ctx context.Context, ids []string, ownerID string) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
	WHERE id = ANY($1) AND created_by = $2 AND NOT is_deleted
	ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, ids, ownerID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (r *taskRepository) BulkUpdate(ctx context.Context, ids []string, ownerID string, change repository.BulkChange) ([]string, error) {
	const query = `
	UPDATE tasks
	SET status = COALESCE($3::text, status),
		is_deleted = is_deleted OR $4,
		updated_at = NOW()
	WHERE id = ANY($1) AND created_by = $2 AND NOT is_deleted
	RETURNING id
	`

	var status interface{}
	if change.Status != nil {
		status = string(*change.Status)
	}

	rows, err := r.pool.Query(ctx, query, ids, ownerID, status, change.Delete)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *taskRepository) Stats(ctx context.Context, ownerID string, now time.Time) (*domain.TaskStats, error) {
	const query = `
	SELECT status, priority, COUNT(*),
		COUNT(*) FILTER (WHERE due_date < $2 AND status <> 'completed')
	FROM tasks
	WHERE NOT is_deleted AND ($1 = '' OR created_by = $1)
	GROUP BY status, priority
	`

	rows, err := r.pool.Query(ctx, query, ownerID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &domain.TaskStats{}
	byStatus := counter{}
	byPriority := counter{}
	for rows.Next() {
		var (
			status, priority string
			count, overdue   int
		)
		if err := rows.Scan(&status, &priority, &count, &overdue); err != nil {
			return nil, err
		}
		stats.Total += count
		stats.Overdue += overdue
		byStatus[status] += count
		byPriority[priority] += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.ByStatus = byStatus.groups()
	stats.ByPriority = byPriority.groups()
	return stats, nil
}

func (r *taskRepository) Recent(ctx context.Context, limit int) ([]domain.Task, error) {
	query, args := buildListQuery(repository.TaskFilter{Sort: repository.SortCreatedAt, Limit: limit})
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

// buildTaskWhere renders the filter predicate. Soft-deleted rows are always excluded.
func buildTaskWhere(filter repository.TaskFilter) (string, []interface{}) {
	clauses := []string{"NOT is_deleted"}
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CreatedBy != "" {
		clauses = append(clauses, "created_by = "+arg(filter.CreatedBy))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = "+arg(string(filter.Status)))
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = "+arg(string(filter.Priority)))
	}
	if filter.Assignee != "" {
		clauses = append(clauses, "assignee = "+arg(filter.Assignee))
	}
	if filter.Search != "" {
		p := arg(likePattern(filter.Search))
		clauses = append(clauses, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	return strings.Join(clauses, " AND "), args
}

func taskOrderBy(key string) string {
	switch repository.NormalizeSort(key) {
	case repository.SortUpdatedAt:
		return "updated_at DESC, created_at DESC, id DESC"
	case repository.SortDueDate:
		return "due_date ASC NULLS LAST, created_at DESC, id DESC"
	case repository.SortPriority:
		return "CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END, created_at DESC, id DESC"
	case repository.SortTitle:
		return "title DESC, created_at DESC, id DESC"
	case repository.SortStatus:
		return "status DESC, created_at DESC, id DESC"
	}
	return "created_at DESC, id DESC"
}

func buildListQuery(filter repository.TaskFilter) (string, []interface{}) {
	where, args := buildTaskWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + where + ` ORDER BY ` + taskOrderBy(filter.Sort)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()
	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

func scanTask(row scanner) (*domain.Task, error) {
	var (
		task     domain.Task
		due      *time.Time
		assignee *string
		comments []byte
	)

	if err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&due,
		&task.CreatedBy,
		&assignee,
		&task.Tags,
		&comments,
		&task.IsDeleted,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.DueDate = due
	if assignee != nil {
		task.Assignee = *assignee
	}
	task.Tags = nonNilStrings(task.Tags)
	parsed, err := decodeComments(comments)
	if err != nil {
		return nil, err
	}
	task.Comments = parsed
	return &task, nil
}

func decodeComments(raw []byte) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	if len(raw) == 0 {
		return comments, nil
	}
	if err := json.Unmarshal(raw, &comments); err != nil {
		return nil, fmt.Errorf("decode comments: %w", err)
	}
	return comments, nil
}

type counter map[string]int

func (c counter) groups() []domain.GroupCount {
	out := make([]domain.GroupCount, 0, len(c))
	for k, n := range c {
		out = append(out, domain.GroupCount{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
