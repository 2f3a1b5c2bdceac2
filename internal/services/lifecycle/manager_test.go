package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownRunsStagesInOrder(t *testing.T) {
	m := New(time.Second, nil)
	var order []string
	record := func(name string) ShutdownFunc {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	m.Register(StageStores, "postgres", record("postgres"))
	m.Register(StageStores, "spool", record("spool"))
	m.Register(StageWorkers, "monitor", record("monitor"))
	m.Register(StageWorkers, "spool_processor", record("spool_processor"))
	m.Register(StageIngress, "http_server", record("http_server"))

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, []string{"http_server", "spool_processor", "monitor", "spool", "postgres"}, order)

	require.NoError(t, m.Shutdown(context.Background()))
	assert.Len(t, order, 5)
}

func TestRegisterIgnoresUnusableHooks(t *testing.T) {
	m := New(time.Second, nil)
	ran := 0
	count := func(ctx context.Context) error { ran++; return nil }

	m.Register(StageIngress, "nil", nil)
	m.Register(Stage(-1), "negative", count)
	m.Register(stageCount, "unknown", count)
	require.NoError(t, m.Shutdown(context.Background()))

	m.Register(StageStores, "late", count)
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Zero(t, ran)
}

func TestShutdownJoinsErrorsAndContinues(t *testing.T) {
	m := New(time.Second, nil)
	ran := false
	m.Register(StageStores, "store", func(ctx context.Context) error { ran = true; return nil })
	m.Register(StageIngress, "broken", func(ctx context.Context) error { return errors.New("boom") })

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: boom")
	assert.True(t, ran)
}

func TestShutdownDeadlineCoversAllStages(t *testing.T) {
	m := New(20*time.Millisecond, nil)
	m.Register(StageIngress, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	var storeErr error
	m.Register(StageStores, "store", func(ctx context.Context) error {
		storeErr = ctx.Err()
		return nil
	})

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, storeErr, context.DeadlineExceeded)
}

func TestWatchCancelsWithParent(t *testing.T) {
	m := New(time.Second, nil)
	parent, stopParent := context.WithCancel(context.Background())
	ctx, cancel := m.Watch(parent)
	defer cancel()

	stopParent()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("watch context not cancelled")
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "ingress", StageIngress.String())
	assert.Equal(t, "workers", StageWorkers.String())
	assert.Equal(t, "stores", StageStores.String())
	assert.Equal(t, "stage(7)", Stage(7).String())
}
