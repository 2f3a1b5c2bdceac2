package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc describes a graceful shutdown callback.
type ShutdownFunc func(ctx context.Context) error

// Stage orders shutdown. Every hook of a stage has returned before the next
// stage starts.
type Stage int

const (
	// StageIngress stops traffic that could still mutate tasks.
	StageIngress Stage = iota
	// StageWorkers stops background jobs that write audit entries.
	StageWorkers
	// StageStores closes connections, pools and spool files.
	StageStores

	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageIngress:
		return "ingress"
	case StageWorkers:
		return "workers"
	case StageStores:
		return "stores"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager runs shutdown hooks stage by stage under one deadline.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	stages [stageCount][]hook
	done   bool
}

// New creates a lifecycle manager; timeout bounds the whole shutdown.
func New(timeout time.Duration, logger *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{timeout: timeout, logger: logger}
}

// Register adds a hook to stage. Within a stage hooks run newest first.
// Hooks registered after Shutdown are ignored.
func (m *Manager) Register(stage Stage, name string, fn ShutdownFunc) {
	if fn == nil || stage < 0 || stage >= stageCount {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		m.logger.Warn("shutdown hook registered too late", zap.String("component", name))
		return
	}
	m.stages[stage] = append(m.stages[stage], hook{name: name, fn: fn})
}

// Shutdown runs every registered hook once. A failing hook does not stop the
// rest; the returned error joins all failures.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return nil
	}
	m.done = true

	var result error
	for stage := Stage(0); stage < stageCount; stage++ {
		hooks := m.stages[stage]
		for i := len(hooks) - 1; i >= 0; i-- {
			h := hooks[i]
			started := time.Now()
			if err := h.fn(ctx); err != nil {
				m.logger.Error("shutdown hook failed",
					zap.Stringer("stage", stage),
					zap.String("component", h.name),
					zap.Error(err),
				)
				result = errors.Join(result, fmt.Errorf("%s: %w", h.name, err))
				continue
			}
			m.logger.Info("component stopped",
				zap.Stringer("stage", stage),
				zap.String("component", h.name),
				zap.Duration("took", time.Since(started)),
			)
		}
		m.stages[stage] = nil
	}
	return result
}

// Watch returns a context cancelled on SIGTERM, SIGINT or a call to the
// returned cancel func.
func (m *Manager) Watch(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
