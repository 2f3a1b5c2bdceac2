package domain

import "time"

// TaskView is a task with its user references resolved for presentation.
type TaskView struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Status       Status        `json:"status"`
	Priority     Priority      `json:"priority"`
	DueDate      *time.Time    `json:"due_date"`
	DaysUntilDue *int          `json:"days_until_due"`
	CreatedBy    *UserRef      `json:"created_by"`
	Assignee     *UserRef      `json:"assignee"`
	Tags         []string      `json:"tags"`
	Comments     []CommentView `json:"comments"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	ID        string    `json:"id"`
	Author    *UserRef  `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskView builds the presentation of t. lookup returns nil for unknown ids.
func NewTaskView(t *Task, lookup func(id string) *UserRef, now time.Time) *TaskView {
	if t == nil {
		return nil
	}
	if lookup == nil {
		lookup = func(string) *UserRef { return nil }
	}
	view := &TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		CreatedBy:   lookup(t.CreatedBy),
		Tags:        t.Tags,
		Comments:    make([]CommentView, 0, len(t.Comments)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	if view.CreatedBy == nil {
		view.CreatedBy = &UserRef{ID: t.CreatedBy}
	}
	if t.Assignee != "" {
		view.Assignee = lookup(t.Assignee)
		if view.Assignee == nil {
			view.Assignee = &UserRef{ID: t.Assignee}
		}
	}
	if t.DueDate != nil {
		days := daysUntil(*t.DueDate, now)
		view.DaysUntilDue = &days
	}
	for _, c := range t.Comments {
		author := lookup(c.AuthorID)
		if author == nil {
			author = &UserRef{ID: c.AuthorID}
		}
		view.Comments = append(view.Comments, CommentView{
			ID:        c.ID,
			Author:    author,
			Content:   c.Content,
			CreatedAt: c.CreatedAt,
		})
	}
	return view
}

// daysUntil rounds up to whole days, negative once the date has passed.
func daysUntil(due, now time.Time) int {
	const day = 24 * time.Hour
	diff := due.Sub(now)
	days := int(diff / day)
	if diff%day > 0 {
		days++
	}
	return days
}

// Pagination describes one page of a listing.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination computes the page count as ceil(total/limit).
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// TaskPage is one page of task listings.
type TaskPage struct {
	Tasks      []*TaskView `json:"tasks"`
	Pagination Pagination  `json:"pagination"`
}

// UserPage is one page of user listings.
type UserPage struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// ActivityPage is a slice of a task's audit trail.
type ActivityPage struct {
	Entries []ActivityView `json:"entries"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Skip    int            `json:"skip"`
}

// SystemStats is the administrator overview.
type SystemStats struct {
	Users       int          `json:"users"`
	Tasks       int          `json:"tasks"`
	Completed   int          `json:"completed"`
	Active      int          `json:"active"`
	ByPriority  []GroupCount `json:"by_priority"`
	RecentTasks []RecentTask `json:"recent"`
}

// RecentTask is the compact listing used in the administrator overview.
type RecentTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedBy *UserRef  `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
