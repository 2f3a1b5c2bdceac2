package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
)

type Monitor struct {
	checks []Check
	spool  *buffer.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New returns a monitor over checks. A nil spool reports the spool as disabled.
func New(checks []Check, spool *buffer.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		checks:   checks,
		spool:    spool,
		interval: interval,
		timeout:  3 * time.Second,
		stopCh:   make(chan struct{}),
		logger:   logger,
	}
}

func (m *Monitor) Start() {
	m.Refresh()
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Online
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := m.status
	status.Components = make(map[string]bool, len(m.status.Components))
	for k, v := range m.status.Components {
		status.Components[k] = v
	}
	return status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Refresh()
		case <-m.stopCh:
			return
		}
	}
}

// Refresh runs every check once and stores the result.
func (m *Monitor) Refresh() {
	status := Status{
		Online:     true,
		Components: make(map[string]bool, len(m.checks)),
		LastCheck:  time.Now(),
	}
	for _, c := range m.checks {
		ok := m.ping(c)
		status.Components[c.Name] = ok
		if c.Required && !ok {
			status.Online = false
		}
	}
	status.Spool, status.SpoolSize = m.checkSpool()

	m.mu.Lock()
	previous := m.status
	m.status = status
	m.mu.Unlock()

	if !previous.LastCheck.IsZero() && previous.Online != status.Online {
		m.logger.Warn("dependency status changed", zap.Bool("online", status.Online), zap.Any("components", status.Components))
	}
}

func (m *Monitor) ping(c Check) bool {
	if c.Ping == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		m.logger.Debug("dependency check failed", zap.String("component", c.Name), zap.Error(err))
		return false
	}
	return true
}

func (m *Monitor) checkSpool() (bool, int) {
	if m.spool == nil {
		return false, 0
	}
	size, err := m.spool.Size()
	if err != nil {
		m.logger.Warn("spool size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
