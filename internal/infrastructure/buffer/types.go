package buffer

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EntityActivity = "activity"

	OperationAppend = "append"
)

// Item is a write that could not reach primary storage and waits for replay.
type Item struct {
	ID        string          `json:"id"`
	Entity    string          `json:"entity"`
	Operation string          `json:"operation"`
	Data      json.RawMessage `json:"data"`
	Retries   int             `json:"retries"`
	LastError string          `json:"last_error,omitempty"`
	// FirstSeen is when the item was first spooled; retention counts from it.
	FirstSeen time.Time `json:"first_seen"`
	// Timestamp orders the queue and moves forward on every requeue.
	Timestamp time.Time `json:"timestamp"`

	bucketKey []byte
}

func (i *Item) normalize() {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now()
	}
	if i.FirstSeen.IsZero() {
		i.FirstSeen = i.Timestamp
	}
}
