package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fastygo/taskflow/domain"
)

func TestApplyPatch(t *testing.T) {
	due := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	tests := []struct {
		name   string
		task   domain.Task
		patch  domain.TaskPatch
		want   map[string]string
		fields []string
	}{
		{
			name:  "empty patch",
			task:  domain.Task{Title: "a", Status: domain.StatusTodo},
			patch: domain.TaskPatch{},
			want:  map[string]string{},
		},
		{
			name:  "title is trimmed before comparing",
			task:  domain.Task{Title: "a"},
			patch: domain.TaskPatch{Title: domain.Some("  a ")},
			want:  map[string]string{},
		},
		{
			name:   "due date is serialized",
			task:   domain.Task{},
			patch:  domain.TaskPatch{DueDate: domain.Some(&due)},
			want:   map[string]string{"dueDate": "2026-03-04T05:06:07Z"},
			fields: []string{"dueDate"},
		},
		{
			name:  "nil tags equal empty tags",
			task:  domain.Task{Tags: nil},
			patch: domain.TaskPatch{Tags: domain.Some([]string{})},
			want:  map[string]string{},
		},
		{
			name: "multiple fields keep fixed order",
			task: domain.Task{Title: "a", Status: domain.StatusTodo, Priority: domain.PriorityLow},
			patch: domain.TaskPatch{
				Priority:    domain.Some(domain.PriorityHigh),
				Status:      domain.Some(domain.StatusCompleted),
				Description: domain.Some("d"),
			},
			want: map[string]string{
				"description": "d",
				"status":      "completed",
				"priority":    "high",
			},
			fields: []string{"description", "status", "priority"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := tt.task
			changes := applyPatch(&task, tt.patch)
			assert.Equal(t, tt.want, changes.Map())
			if tt.fields != nil {
				assert.Equal(t, tt.fields, changes.Fields())
			}
		})
	}
}

func TestValidatePatch(t *testing.T) {
	assert.NoError(t, validatePatch(domain.TaskPatch{}))
	assert.NoError(t, validatePatch(domain.TaskPatch{Status: domain.Some(domain.StatusArchived)}))
	assert.Error(t, validatePatch(domain.TaskPatch{Title: domain.Some("")}))
	assert.Error(t, validatePatch(domain.TaskPatch{Priority: domain.Some(domain.Priority(""))}))
}
