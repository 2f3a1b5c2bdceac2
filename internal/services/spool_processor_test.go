package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/repository/memory"
)

type staticHealth bool

func (s staticHealth) IsOnline() bool { return bool(s) }

func newProcessor(t *testing.T, online bool, cfg ProcessorConfig) (*SpoolProcessor, *memory.ActivityRepository) {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "spool.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	repo := memory.NewActivityRepository()
	return NewSpoolProcessor(store, staticHealth(online), repo, nil, cfg), repo
}

func entry(id string) *domain.ActivityLogEntry {
	changes := domain.NewChangeSet()
	changes.Set("status", "completed")
	changes.Set("priority", "high")
	return &domain.ActivityLogEntry{
		ID:          id,
		TaskID:      "task-1",
		ActorID:     "user-1",
		Action:      domain.ActionUpdated,
		Changes:     changes,
		Description: "Task updated by Ann",
		Timestamp:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSpoolBridgeReplaysIntoActivityStore(t *testing.T) {
	processor, repo := newProcessor(t, true, ProcessorConfig{})
	bridge := NewSpoolBridge(processor)
	ctx := context.Background()

	require.NoError(t, bridge.SpoolActivity(ctx, entry("01A")))
	require.NoError(t, bridge.SpoolActivity(ctx, entry("01B")))
	assert.Equal(t, 2, processor.Size())

	require.NoError(t, processor.Drain(ctx))

	assert.Zero(t, processor.Size())
	stored := repo.All()
	require.Len(t, stored, 2)
	assert.Equal(t, "01A", stored[0].ID)
	assert.Equal(t, []string{"status", "priority"}, stored[0].Changes.Fields())
}

func TestSpoolDrainSkipsWhileOffline(t *testing.T) {
	processor, repo := newProcessor(t, false, ProcessorConfig{})
	require.NoError(t, NewSpoolBridge(processor).SpoolActivity(context.Background(), entry("01A")))

	require.NoError(t, processor.Drain(context.Background()))

	assert.Equal(t, 1, processor.Size())
	assert.Empty(t, repo.All())
}

func TestSpoolDrainRetriesThenDrops(t *testing.T) {
	processor, repo := newProcessor(t, true, ProcessorConfig{MaxRetries: 2})
	ctx := context.Background()
	require.NoError(t, NewSpoolBridge(processor).SpoolActivity(ctx, entry("01A")))
	repo.FailAppends(errors.New("still down"))

	require.NoError(t, processor.Drain(ctx))
	assert.Equal(t, 1, processor.Size())

	require.NoError(t, processor.Drain(ctx))
	assert.Zero(t, processor.Size())
}

func TestSpoolReplayIsIdempotent(t *testing.T) {
	processor, repo := newProcessor(t, true, ProcessorConfig{})
	ctx := context.Background()
	e := entry("01A")
	require.NoError(t, repo.Append(ctx, e))
	require.NoError(t, NewSpoolBridge(processor).SpoolActivity(ctx, e))

	require.NoError(t, processor.Drain(ctx))
	assert.Len(t, repo.All(), 1)
}

func TestSpoolPruneDropsExpiredItems(t *testing.T) {
	processor, _ := newProcessor(t, true, ProcessorConfig{Retention: time.Hour})
	require.NoError(t, processor.Enqueue(context.Background(), buffer.Item{
		ID:        "old",
		Entity:    buffer.EntityActivity,
		Operation: buffer.OperationAppend,
		Timestamp: time.Now().Add(-2 * time.Hour),
	}))

	removed, err := processor.Prune(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestSpoolBridgeRejectsNilEntry(t *testing.T) {
	processor, _ := newProcessor(t, true, ProcessorConfig{})
	assert.Error(t, NewSpoolBridge(processor).SpoolActivity(context.Background(), nil))
	assert.Error(t, NewSpoolBridge(nil).SpoolActivity(context.Background(), entry("x")))
}
