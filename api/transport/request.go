package transport

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fastygo/taskflow/domain"
)

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileUpdateRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"due_date"`
	Assignee    string   `json:"assignee"`
	Tags        []string `json:"tags"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type BulkDeleteRequest struct {
	TaskIDs []string `json:"task_ids"`
}

type BulkStatusRequest struct {
	TaskIDs []string `json:"task_ids"`
	Status  string   `json:"status"`
}

type RoleRequest struct {
	Role string `json:"role"`
}

// StatusRequest uses a pointer so a missing flag can be told apart from false.
type StatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// ParseDate accepts RFC 3339 timestamps and bare dates. An empty value
// yields nil.
func ParseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.Validation("invalid due date %q", value)
}

// ParseTaskPatch reads an update body keeping track of which fields were
// present. A null or empty due_date or assignee clears the field.
func ParseTaskPatch(body []byte) (domain.TaskPatch, error) {
	var patch domain.TaskPatch
	if !gjson.ValidBytes(body) {
		return patch, domain.ErrInvalidPayload
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return patch, domain.ErrInvalidPayload
	}

	str := func(key string) (string, bool, error) {
		v := root.Get(key)
		if !v.Exists() {
			return "", false, nil
		}
		if v.Type != gjson.String {
			return "", false, domain.Validation("%s must be a string", key)
		}
		return v.Str, true, nil
	}

	if v, ok, err := str("title"); err != nil {
		return patch, err
	} else if ok {
		patch.Title = domain.Some(v)
	}
	if v, ok, err := str("description"); err != nil {
		return patch, err
	} else if ok {
		patch.Description = domain.Some(v)
	}
	if v, ok, err := str("status"); err != nil {
		return patch, err
	} else if ok {
		patch.Status = domain.Some(domain.Status(v))
	}
	if v, ok, err := str("priority"); err != nil {
		return patch, err
	} else if ok {
		patch.Priority = domain.Some(domain.Priority(v))
	}

	if v := root.Get("due_date"); v.Exists() {
		switch v.Type {
		case gjson.Null:
			patch.DueDate = domain.Some[*time.Time](nil)
		case gjson.String:
			due, err := ParseDate(v.Str)
			if err != nil {
				return patch, err
			}
			patch.DueDate = domain.Some(due)
		default:
			return patch, domain.Validation("due_date must be a string or null")
		}
	}

	if v := root.Get("assignee"); v.Exists() {
		switch v.Type {
		case gjson.Null:
			patch.Assignee = domain.Some("")
		case gjson.String:
			patch.Assignee = domain.Some(strings.TrimSpace(v.Str))
		default:
			return patch, domain.Validation("assignee must be a string or null")
		}
	}

	if v := root.Get("tags"); v.Exists() {
		switch {
		case v.Type == gjson.Null:
			patch.Tags = domain.Some([]string{})
		case v.IsArray():
			tags := []string{}
			for _, item := range v.Array() {
				if item.Type != gjson.String {
					return patch, domain.Validation("tags must be strings")
				}
				tags = append(tags, item.Str)
			}
			patch.Tags = domain.Some(tags)
		default:
			return patch, domain.Validation("tags must be an array")
		}
	}

	return patch, nil
}
