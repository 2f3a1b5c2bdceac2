package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Action names the kind of mutation an activity entry records.
type Action string

const (
	ActionCreated       Action = "created"
	ActionUpdated       Action = "updated"
	ActionStatusChanged Action = "status_changed"
	ActionCommented     Action = "commented"
	ActionDeleted       Action = "deleted"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionStatusChanged, ActionCommented, ActionDeleted:
		return true
	}
	return false
}

// ActivityLogEntry is an immutable audit record for one task mutation.
type ActivityLogEntry struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	ActorID     string     `json:"actor_id"`
	Action      Action     `json:"action"`
	Changes     *ChangeSet `json:"changes,omitempty"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// ActivityView is an entry with its actor resolved for presentation.
// Actor is nil when the user no longer exists.
type ActivityView struct {
	ActivityLogEntry
	Actor *UserRef `json:"actor"`
}

// ChangeSet maps field names to their serialized new value and keeps the
// order in which fields were recorded.
type ChangeSet struct {
	keys   []string
	values map[string]string
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{values: make(map[string]string)}
}

// Set records field -> value. Re-setting a field keeps its original position.
func (c *ChangeSet) Set(field, value string) {
	if c.values == nil {
		c.values = make(map[string]string)
	}
	if _, ok := c.values[field]; !ok {
		c.keys = append(c.keys, field)
	}
	c.values[field] = value
}

func (c *ChangeSet) Get(field string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.values[field]
	return v, ok
}

func (c *ChangeSet) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Fields returns the recorded field names in insertion order.
func (c *ChangeSet) Fields() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Map returns an unordered copy.
func (c *ChangeSet) Map() map[string]string {
	out := make(map[string]string, c.Len())
	if c == nil {
		return out
	}
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

func (c *ChangeSet) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *ChangeSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("change set: expected object, got %v", tok)
	}
	c.keys = nil
	c.values = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("change set: invalid key %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		c.Set(key, value)
	}
	_, err = dec.Token()
	return err
}
