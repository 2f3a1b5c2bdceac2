package usecase

import (
	"context"

	"github.com/fastygo/taskflow/domain"
)

// AuditSpool holds audit entries that could not be written to the primary
// store so they can be replayed once it is reachable again.
type AuditSpool interface {
	SpoolActivity(ctx context.Context, entry *domain.ActivityLogEntry) error
}
