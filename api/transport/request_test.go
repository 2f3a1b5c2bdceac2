package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskflow/domain"
)

func TestParseTaskPatchTracksPresence(t *testing.T) {
	patch, err := ParseTaskPatch([]byte(`{"title":"New","status":"completed"}`))
	require.NoError(t, err)

	assert.Equal(t, domain.Some("New"), patch.Title)
	assert.Equal(t, domain.Some(domain.StatusCompleted), patch.Status)
	assert.False(t, patch.Description.Set)
	assert.False(t, patch.Priority.Set)
	assert.False(t, patch.DueDate.Set)
	assert.False(t, patch.Assignee.Set)
	assert.False(t, patch.Tags.Set)
}

func TestParseTaskPatchClearsWithNull(t *testing.T) {
	patch, err := ParseTaskPatch([]byte(`{"due_date":null,"assignee":null,"tags":null,"description":""}`))
	require.NoError(t, err)

	require.True(t, patch.DueDate.Set)
	assert.Nil(t, patch.DueDate.Value)
	assert.Equal(t, domain.Some(""), patch.Assignee)
	assert.Equal(t, domain.Some([]string{}), patch.Tags)
	assert.Equal(t, domain.Some(""), patch.Description)
}

func TestParseTaskPatchValues(t *testing.T) {
	patch, err := ParseTaskPatch([]byte(`{"due_date":"2030-05-06T07:08:09+02:00","assignee":" u2 ","tags":["a","b"]}`))
	require.NoError(t, err)

	require.NotNil(t, patch.DueDate.Value)
	assert.True(t, patch.DueDate.Value.Equal(time.Date(2030, 5, 6, 5, 8, 9, 0, time.UTC)))
	assert.Equal(t, time.UTC, patch.DueDate.Value.Location())
	assert.Equal(t, domain.Some("u2"), patch.Assignee)
	assert.Equal(t, domain.Some([]string{"a", "b"}), patch.Tags)
}

func TestParseTaskPatchRejects(t *testing.T) {
	tests := map[string]string{
		"not json":        `{"title":`,
		"not an object":   `["title"]`,
		"numeric title":   `{"title":5}`,
		"bad date":        `{"due_date":"soon"}`,
		"numeric date":    `{"due_date":12}`,
		"object assignee": `{"assignee":{}}`,
		"mixed tags":      `{"tags":["a",1]}`,
		"string tags":     `{"tags":"a,b"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTaskPatch([]byte(body))
			require.Error(t, err)
			assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
		})
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = ParseDate("2031-12-24")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2031, 12, 24, 0, 0, 0, 0, time.UTC), *d)

	_, err = ParseDate("24/12/2031")
	assert.Error(t, err)
}
