package mongodb

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/fastygo/taskflow/domain"
)

// Collection names.
const (
	TasksCollection    = "tasks"
	ActivityCollection = "activity_logs"
	UsersCollection    = "users"
)

type commentDoc struct {
	ID        string    `bson:"id"`
	AuthorID  string    `bson:"authorId"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

// taskDoc stores priorityRank and noDueDate next to the task so listings can
// sort by priority order and put tasks without a due date last.
type taskDoc struct {
	ID           string       `bson:"_id"`
	Title        string       `bson:"title"`
	Description  string       `bson:"description"`
	Status       string       `bson:"status"`
	Priority     string       `bson:"priority"`
	PriorityRank int          `bson:"priorityRank"`
	DueDate      *time.Time   `bson:"dueDate"`
	NoDueDate    bool         `bson:"noDueDate"`
	CreatedBy    string       `bson:"createdBy"`
	Assignee     string       `bson:"assignee,omitempty"`
	Tags         []string     `bson:"tags"`
	Comments     []commentDoc `bson:"comments"`
	IsDeleted    bool         `bson:"isDeleted"`
	CreatedAt    time.Time    `bson:"createdAt"`
	UpdatedAt    time.Time    `bson:"updatedAt"`
}

func newTaskDoc(t *domain.Task) taskDoc {
	doc := taskDoc{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		PriorityRank: t.Priority.Rank(),
		DueDate:      t.DueDate,
		NoDueDate:    t.DueDate == nil,
		CreatedBy:    t.CreatedBy,
		Assignee:     t.Assignee,
		Tags:         t.Tags,
		Comments:     make([]commentDoc, 0, len(t.Comments)),
		IsDeleted:    t.IsDeleted,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	for _, c := range t.Comments {
		doc.Comments = append(doc.Comments, newCommentDoc(c))
	}
	return doc
}

func newCommentDoc(c domain.Comment) commentDoc {
	return commentDoc{ID: c.ID, AuthorID: c.AuthorID, Content: c.Content, CreatedAt: c.CreatedAt}
}

func (d taskDoc) toDomain() domain.Task {
	t := domain.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Status:      domain.Status(d.Status),
		Priority:    domain.Priority(d.Priority),
		CreatedBy:   d.CreatedBy,
		Assignee:    d.Assignee,
		Tags:        d.Tags,
		Comments:    commentsToDomain(d.Comments),
		IsDeleted:   d.IsDeleted,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		t.DueDate = &due
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

func commentsToDomain(docs []commentDoc) []domain.Comment {
	out := make([]domain.Comment, 0, len(docs))
	for _, c := range docs {
		out = append(out, domain.Comment{
			ID:        c.ID,
			AuthorID:  c.AuthorID,
			Content:   c.Content,
			CreatedAt: c.CreatedAt.UTC(),
		})
	}
	return out
}

// activityDoc keeps changes as an ordered document.
type activityDoc struct {
	ID          string    `bson:"_id"`
	TaskID      string    `bson:"taskId"`
	ActorID     string    `bson:"actorId"`
	Action      string    `bson:"action"`
	Changes     bson.D    `bson:"changes,omitempty"`
	Description string    `bson:"description"`
	Timestamp   time.Time `bson:"timestamp"`
}

func newActivityDoc(e *domain.ActivityLogEntry) activityDoc {
	return activityDoc{
		ID:          e.ID,
		TaskID:      e.TaskID,
		ActorID:     e.ActorID,
		Action:      string(e.Action),
		Changes:     changesToBSON(e.Changes),
		Description: e.Description,
		Timestamp:   e.Timestamp,
	}
}

func (d activityDoc) toDomain() domain.ActivityLogEntry {
	return domain.ActivityLogEntry{
		ID:          d.ID,
		TaskID:      d.TaskID,
		ActorID:     d.ActorID,
		Action:      domain.Action(d.Action),
		Changes:     changesFromBSON(d.Changes),
		Description: d.Description,
		Timestamp:   d.Timestamp.UTC(),
	}
}

func changesToBSON(c *domain.ChangeSet) bson.D {
	if c.Len() == 0 {
		return nil
	}
	doc := make(bson.D, 0, c.Len())
	for _, field := range c.Fields() {
		v, _ := c.Get(field)
		doc = append(doc, bson.E{Key: field, Value: v})
	}
	return doc
}

func changesFromBSON(doc bson.D) *domain.ChangeSet {
	if len(doc) == 0 {
		return nil
	}
	c := domain.NewChangeSet()
	for _, e := range doc {
		if s, ok := e.Value.(string); ok {
			c.Set(e.Key, s)
		}
	}
	return c
}

type userDoc struct {
	ID           string     `bson:"_id"`
	Name         string     `bson:"name"`
	Email        string     `bson:"email"`
	EmailLower   string     `bson:"emailLower"`
	PasswordHash string     `bson:"passwordHash"`
	Role         string     `bson:"role"`
	IsActive     bool       `bson:"isActive"`
	Avatar       string     `bson:"avatar,omitempty"`
	LastLogin    *time.Time `bson:"lastLogin,omitempty"`
	CreatedAt    time.Time  `bson:"createdAt"`
	UpdatedAt    time.Time  `bson:"updatedAt"`
}

func (d userDoc) toDomain() domain.User {
	u := domain.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		IsActive:     d.IsActive,
		Avatar:       d.Avatar,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.LastLogin != nil {
		last := d.LastLogin.UTC()
		u.LastLogin = &last
	}
	return u
}

func newUserDoc(u *domain.User) userDoc {
	return userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		EmailLower:   strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		Avatar:       u.Avatar,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func groupCounts(counts map[string]int) []domain.GroupCount {
	out := make([]domain.GroupCount, 0, len(counts))
	for k, v := range counts {
		out = append(out, domain.GroupCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
