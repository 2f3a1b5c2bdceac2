package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeSetKeepsInsertionOrder(t *testing.T) {
	c := NewChangeSet()
	c.Set("title", "b")
	c.Set("status", "completed")
	c.Set("title", "c")

	assert.Equal(t, []string{"title", "status"}, c.Fields())
	v, ok := c.Get("title")
	assert.True(t, ok)
	assert.Equal(t, "c", v)

	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"c","status":"completed"}`, string(raw))
}

func TestChangeSetDecodePreservesOrder(t *testing.T) {
	var c ChangeSet
	require.NoError(t, json.Unmarshal([]byte(`{"tags":"[\"x\"]","dueDate":"","priority":"low"}`), &c))
	assert.Equal(t, []string{"tags", "dueDate", "priority"}, c.Fields())
	assert.Equal(t, `["x"]`, c.Map()["tags"])

	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &c))
}

func TestEntryOmitsNilChanges(t *testing.T) {
	raw, err := json.Marshal(ActivityLogEntry{ID: "1", TaskID: "t", ActorID: "u", Action: ActionCreated})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "changes")

	var nilSet *ChangeSet
	assert.Zero(t, nilSet.Len())
	assert.Empty(t, nilSet.Map())
}
