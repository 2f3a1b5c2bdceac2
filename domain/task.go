package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
	MaxCommentLength     = 2000
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Priority is the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	return p.Rank() >= 0
}

// Rank returns the sort position of the priority: urgent sorts first.
// Unknown priorities rank -1.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return -1
}

// Comment is a single entry in a task's discussion thread.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Task represents a user-owned activity item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	Assignee    string     `json:"assignee,omitempty"`
	Tags        []string   `json:"tags"`
	Comments    []Comment  `json:"comments"`
	IsDeleted   bool       `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusCompleted
}

// IsOverdue reports whether the due date has passed on an unfinished task.
func (t *Task) IsOverdue(now time.Time) bool {
	if t == nil || t.DueDate == nil || t.IsCompleted() {
		return false
	}
	return t.DueDate.Before(now)
}

// OwnedBy reports whether userID created the task.
func (t *Task) OwnedBy(userID string) bool {
	return t != nil && userID != "" && t.CreatedBy == userID
}

// ApplyDefaults fills the documented defaults for a freshly created task.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Comments == nil {
		t.Comments = []Comment{}
	}
}

// Validate checks the field constraints of a task.
func (t *Task) Validate() error {
	if err := ValidateTitle(t.Title); err != nil {
		return err
	}
	if err := ValidateDescription(t.Description); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return Validation("invalid status %q", t.Status)
	}
	if !t.Priority.Valid() {
		return Validation("invalid priority %q", t.Priority)
	}
	return nil
}

func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return Validation("task title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return Validation("title cannot exceed %d characters", MaxTitleLength)
	}
	return nil
}

func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return Validation("description cannot exceed %d characters", MaxDescriptionLength)
	}
	return nil
}

// Optional carries a value together with whether the caller supplied it,
// so partial updates can tell an absent field from an explicit empty one.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some wraps a supplied value.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// TaskPatch lists the caller-supplied fields of an update. A nil DueDate or
// empty Assignee with Set clears the field.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Status      Optional[Status]
	Priority    Optional[Priority]
	DueDate     Optional[*time.Time]
	Assignee    Optional[string]
	Tags        Optional[[]string]
}

// TaskStats summarises a set of live tasks.
type TaskStats struct {
	Total      int          `json:"total"`
	Overdue    int          `json:"overdue"`
	ByStatus   []GroupCount `json:"by_status"`
	ByPriority []GroupCount `json:"by_priority"`
}

// GroupCount is one bucket of an aggregation.
type GroupCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}
