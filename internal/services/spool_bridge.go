package services

import (
	"context"
	"encoding/json"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/usecase"
)

// SpoolBridge lets the activity recorder hand failed writes to the spool
// without depending on its storage.
type SpoolBridge struct {
	processor *SpoolProcessor
}

func NewSpoolBridge(processor *SpoolProcessor) *SpoolBridge {
	return &SpoolBridge{processor: processor}
}

func (b *SpoolBridge) SpoolActivity(ctx context.Context, entry *domain.ActivityLogEntry) error {
	if b.processor == nil || entry == nil {
		return domain.ErrInvalidPayload
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	item := buffer.Item{
		ID:        entry.ID,
		Entity:    buffer.EntityActivity,
		Operation: buffer.OperationAppend,
		Data:      payload,
	}
	return b.processor.Enqueue(ctx, item)
}

var _ usecase.AuditSpool = (*SpoolBridge)(nil)
