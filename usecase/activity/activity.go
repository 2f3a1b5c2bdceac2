package activity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/logger"
	"github.com/fastygo/taskflow/pkg/sequence"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/usecase"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Recorder writes audit entries on behalf of the task use case. Writes are
// best-effort: failures are logged and spooled, never returned.
type Recorder struct {
	entries repository.ActivityRepository
	spool   usecase.AuditSpool
	logger  *zap.Logger
	now     func() time.Time

	// mu keeps timestamps and ids issued in the same order.
	mu  sync.Mutex
	ids *sequence.Generator
}

func NewRecorder(entries repository.ActivityRepository, spool usecase.AuditSpool, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		entries: entries,
		spool:   spool,
		ids:     sequence.New(),
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// Record builds and stores one entry. The returned entry is nil only when
// the input is unusable.
func (r *Recorder) Record(ctx context.Context, taskID, actorID string, action domain.Action, changes *domain.ChangeSet, description string) *domain.ActivityLogEntry {
	if r == nil || taskID == "" || actorID == "" || !action.Valid() {
		return nil
	}
	if changes != nil && changes.Len() == 0 {
		changes = nil
	}

	r.mu.Lock()
	ts := r.now()
	id := r.ids.Next(ts)
	r.mu.Unlock()

	entry := &domain.ActivityLogEntry{
		ID:          id,
		TaskID:      taskID,
		ActorID:     actorID,
		Action:      action,
		Changes:     changes,
		Description: description,
		Timestamp:   ts,
	}

	log := logger.WithRequestID(ctx, r.logger).With(
		zap.String("task_id", taskID),
		zap.String("action", string(action)),
		zap.String("entry_id", entry.ID),
	)

	err := r.entries.Append(ctx, entry)
	if err == nil {
		return entry
	}
	log.Error("failed to write activity entry", zap.Error(err))

	if r.spool == nil {
		return entry
	}
	if spoolErr := r.spool.SpoolActivity(context.WithoutCancel(ctx), entry); spoolErr != nil {
		log.Error("failed to spool activity entry", zap.Error(spoolErr))
		return entry
	}
	log.Warn("activity entry spooled for replay")
	return entry
}

// Service answers audit trail queries.
type Service struct {
	entries repository.ActivityRepository
	users   repository.UserRepository
	logger  *zap.Logger
}

func NewService(entries repository.ActivityRepository, users repository.UserRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{entries: entries, users: users, logger: logger}
}

// GetLog returns a task's entries newest first. A zero limit selects the
// default; unresolvable actors are presented as nil.
func (s *Service) GetLog(ctx context.Context, taskID string, limit, skip int) (*domain.ActivityPage, error) {
	if taskID == "" {
		return nil, domain.Validation("task id is required")
	}
	if limit < 0 || skip < 0 {
		return nil, domain.Validation("limit and skip must be non-negative")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	entries, total, err := s.entries.ListByTask(ctx, taskID, limit, skip)
	if err != nil {
		return nil, err
	}

	actors := s.resolveActors(ctx, entries)
	page := &domain.ActivityPage{
		Entries: make([]domain.ActivityView, 0, len(entries)),
		Total:   total,
		Limit:   limit,
		Skip:    skip,
	}
	for _, e := range entries {
		page.Entries = append(page.Entries, domain.ActivityView{
			ActivityLogEntry: e,
			Actor:            actors[e.ActorID],
		})
	}
	return page, nil
}

func (s *Service) resolveActors(ctx context.Context, entries []domain.ActivityLogEntry) map[string]*domain.UserRef {
	refs := make(map[string]*domain.UserRef)
	if s.users == nil || len(entries) == 0 {
		return refs
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ActorID)
	}
	users, err := s.users.GetMany(ctx, ids)
	if err != nil {
		logger.WithRequestID(ctx, s.logger).Warn("actor lookup failed", zap.Error(err))
		return refs
	}
	for i := range users {
		refs[users[i].ID] = &domain.UserRef{
			ID:    users[i].ID,
			Name:  users[i].Name,
			Email: users[i].Email,
		}
	}
	return refs
}
