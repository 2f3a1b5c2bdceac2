package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the spool is drained and pruned.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// SpoolProcessor replays spooled audit entries into the activity store.
type SpoolProcessor struct {
	store    *buffer.Store
	monitor  ConnectionHealth
	activity repository.ActivityRepository
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

func NewSpoolProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	activity repository.ActivityRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *SpoolProcessor {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sp := &SpoolProcessor{
		store:    store,
		monitor:  monitor,
		activity: activity,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = sp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := sp.Drain(ctx); err != nil {
			sp.logger.Error("spool drain failed", zap.Error(err))
		}
	})
	_, _ = sp.cron.AddFunc("@hourly", func() {
		if _, err := sp.Prune(time.Now()); err != nil {
			sp.logger.Error("spool cleanup failed", zap.Error(err))
		}
	})

	return sp
}

// Start launches the cron scheduler.
func (sp *SpoolProcessor) Start() {
	if sp == nil || sp.cron == nil {
		return
	}
	sp.cron.Start()
	sp.logger.Info("spool processor started", zap.Duration("interval", sp.cfg.Interval))
}

// Stop waits for a running job to finish or for ctx to expire.
func (sp *SpoolProcessor) Stop(ctx context.Context) error {
	if sp == nil || sp.cron == nil {
		return nil
	}
	stopCtx := sp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	sp.logger.Info("spool processor stopped")
	return nil
}

// Drain replays one batch synchronously. Failed items go to the back of the
// queue until they exhaust MaxRetries.
func (sp *SpoolProcessor) Drain(ctx context.Context) error {
	if sp == nil || sp.store == nil {
		return nil
	}
	if sp.monitor != nil && !sp.monitor.IsOnline() {
		sp.logger.Debug("skipping spool drain (offline)")
		return nil
	}

	items, err := sp.store.GetBatch(sp.cfg.BatchSize)
	if err != nil {
		return err
	}

	replayed := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := sp.logger.With(zap.String("item_id", item.ID), zap.String("entity", item.Entity))

		if err := sp.processItem(ctx, item); err != nil {
			log.Error("failed to replay spooled item", zap.Int("retries", item.Retries), zap.Error(err))

			if item.Retries+1 >= sp.cfg.MaxRetries {
				log.Warn("dropping spooled item (max retries reached)")
				if err := sp.store.Remove(item); err != nil {
					log.Warn("failed to remove spooled item", zap.Error(err))
				}
				continue
			}
			if err := sp.store.Requeue(item, err); err != nil {
				log.Error("failed to requeue spooled item", zap.Error(err))
			}
			continue
		}

		replayed++
		if err := sp.store.Remove(item); err != nil {
			log.Warn("failed to purge replayed item", zap.Error(err))
		}
	}

	if replayed > 0 {
		sp.logger.Info("spooled items replayed", zap.Int("count", replayed))
	}
	return nil
}

// Prune drops items older than the retention window.
func (sp *SpoolProcessor) Prune(now time.Time) (int, error) {
	if sp == nil || sp.store == nil {
		return 0, nil
	}
	removed, err := sp.store.Cleanup(now.Add(-sp.cfg.Retention))
	if removed > 0 {
		sp.logger.Warn("expired spooled items dropped", zap.Int("count", removed))
	}
	return removed, err
}

// Enqueue persists item for a later replay.
func (sp *SpoolProcessor) Enqueue(ctx context.Context, item buffer.Item) error {
	if sp == nil || sp.store == nil {
		return errors.New("spool processor not configured")
	}
	return sp.store.Enqueue(item)
}

// Size returns the number of spooled items.
func (sp *SpoolProcessor) Size() int {
	if sp == nil || sp.store == nil {
		return 0
	}
	size, err := sp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (sp *SpoolProcessor) processItem(ctx context.Context, item buffer.Item) error {
	switch item.Entity {
	case buffer.EntityActivity:
		if item.Operation != buffer.OperationAppend {
			return fmt.Errorf("unsupported operation %s", item.Operation)
		}
		var entry domain.ActivityLogEntry
		if err := json.Unmarshal(item.Data, &entry); err != nil {
			return err
		}
		return sp.activity.Append(ctx, &entry)
	default:
		return fmt.Errorf("unsupported entity %s", item.Entity)
	}
}
