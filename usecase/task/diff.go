package task

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/fastygo/taskflow/domain"
)

// Change-set field names as they appear in audit entries.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldStatus      = "status"
	fieldPriority    = "priority"
	fieldDueDate     = "dueDate"
	fieldAssignee    = "assignee"
	fieldTags        = "tags"
)

// applyPatch copies every supplied field that differs from t onto t and
// records it. Fields are visited in a fixed order so the resulting change set
// is reproducible.
func applyPatch(t *domain.Task, p domain.TaskPatch) *domain.ChangeSet {
	changes := domain.NewChangeSet()

	if p.Title.Set {
		if title := strings.TrimSpace(p.Title.Value); title != t.Title {
			t.Title = title
			changes.Set(fieldTitle, title)
		}
	}
	if p.Description.Set && p.Description.Value != t.Description {
		t.Description = p.Description.Value
		changes.Set(fieldDescription, p.Description.Value)
	}
	if p.Status.Set && p.Status.Value != t.Status {
		t.Status = p.Status.Value
		changes.Set(fieldStatus, string(p.Status.Value))
	}
	if p.Priority.Set && p.Priority.Value != t.Priority {
		t.Priority = p.Priority.Value
		changes.Set(fieldPriority, string(p.Priority.Value))
	}
	if p.DueDate.Set && !sameTime(t.DueDate, p.DueDate.Value) {
		t.DueDate = copyTime(p.DueDate.Value)
		changes.Set(fieldDueDate, formatTime(t.DueDate))
	}
	if p.Assignee.Set && p.Assignee.Value != t.Assignee {
		t.Assignee = p.Assignee.Value
		changes.Set(fieldAssignee, p.Assignee.Value)
	}
	if p.Tags.Set && !slices.Equal(t.Tags, p.Tags.Value) {
		t.Tags = normalizeTags(p.Tags.Value)
		changes.Set(fieldTags, encodeTags(t.Tags))
	}

	return changes
}

// validatePatch checks the supplied values without touching the task.
func validatePatch(p domain.TaskPatch) error {
	if p.Title.Set {
		if err := domain.ValidateTitle(strings.TrimSpace(p.Title.Value)); err != nil {
			return err
		}
	}
	if p.Description.Set {
		if err := domain.ValidateDescription(p.Description.Value); err != nil {
			return err
		}
	}
	if p.Status.Set && !p.Status.Value.Valid() {
		return domain.Validation("invalid status %q", p.Status.Value)
	}
	if p.Priority.Set && !p.Priority.Value.Valid() {
		return domain.Validation("invalid priority %q", p.Priority.Value)
	}
	return nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := t.UTC()
	return &c
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return append([]string{}, tags...)
}

func encodeTags(tags []string) string {
	b, err := json.Marshal(normalizeTags(tags))
	if err != nil {
		return "[]"
	}
	return string(b)
}
