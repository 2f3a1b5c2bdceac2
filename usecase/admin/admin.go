package admin

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/logger"
	"github.com/fastygo/taskflow/repository"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
	RecentTasks     = 10
)

type UseCase struct {
	users    repository.UserRepository
	tasks    repository.TaskRepository
	sessions repository.SessionRepository
	logger   *zap.Logger
	now      func() time.Time
}

func New(users repository.UserRepository, tasks repository.TaskRepository, sessions repository.SessionRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		tasks:    tasks,
		sessions: sessions,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListUsers pages through users, newest first. search matches name or email.
func (uc *UseCase) ListUsers(ctx context.Context, p domain.Principal, page, limit int, search string) (*domain.UserPage, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit < 1:
		limit = 1
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	users, total, err := uc.users.List(ctx, domain.UserFilter{
		Search: strings.TrimSpace(search),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return &domain.UserPage{
		Users:      users,
		Pagination: domain.NewPagination(total, page, limit),
	}, nil
}

func (uc *UseCase) UpdateRole(ctx context.Context, p domain.Principal, userID string, role domain.Role) (*domain.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, domain.Validation("invalid role %q", role)
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}
	user.Role = role
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	logger.WithRequestID(ctx, uc.logger).Info("user role changed",
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.String("by", p.ID),
	)
	return user, nil
}

// UpdateStatus activates or deactivates a user. Deactivation revokes every
// session of the user.
func (uc *UseCase) UpdateStatus(ctx context.Context, p domain.Principal, userID string, active bool) (*domain.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.IsActive = active
	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}

	log := logger.WithRequestID(ctx, uc.logger).With(zap.String("user_id", userID), zap.Bool("active", active))
	if !active && uc.sessions != nil {
		if err := uc.sessions.DeleteByUser(ctx, userID); err != nil {
			log.Warn("failed to revoke sessions", zap.Error(err))
		}
	}
	log.Info("user status changed", zap.String("by", p.ID))
	return user, nil
}

// SystemStats summarises users and live tasks across all owners.
func (uc *UseCase) SystemStats(ctx context.Context, p domain.Principal) (*domain.SystemStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	users, err := uc.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := uc.tasks.Stats(ctx, "", uc.now())
	if err != nil {
		return nil, err
	}
	recent, err := uc.tasks.Recent(ctx, RecentTasks)
	if err != nil {
		return nil, err
	}

	out := &domain.SystemStats{
		Users:       users,
		Tasks:       stats.Total,
		ByPriority:  stats.ByPriority,
		RecentTasks: make([]domain.RecentTask, 0, len(recent)),
	}
	for _, g := range stats.ByStatus {
		switch domain.Status(g.Key) {
		case domain.StatusCompleted:
			out.Completed += g.Count
		case domain.StatusTodo, domain.StatusInProgress:
			out.Active += g.Count
		}
	}
	if out.ByPriority == nil {
		out.ByPriority = []domain.GroupCount{}
	}

	creators := make([]string, 0, len(recent))
	for _, t := range recent {
		creators = append(creators, t.CreatedBy)
	}
	found, err := uc.users.GetMany(ctx, creators)
	if err != nil {
		logger.WithRequestID(ctx, uc.logger).Warn("creator lookup failed", zap.Error(err))
	}
	refs := make(map[string]*domain.UserRef, len(found))
	for i := range found {
		refs[found[i].ID] = found[i].Ref()
	}
	for _, t := range recent {
		ref := refs[t.CreatedBy]
		if ref == nil {
			ref = &domain.UserRef{ID: t.CreatedBy}
		}
		out.RecentTasks = append(out.RecentTasks, domain.RecentTask{
			ID:        t.ID,
			Title:     t.Title,
			Status:    t.Status,
			CreatedBy: ref,
			CreatedAt: t.CreatedAt,
		})
	}
	return out, nil
}

func requireAdmin(p domain.Principal) error {
	if p.ID == "" || !p.IsActive {
		return domain.ErrUnauthorized
	}
	if !p.IsAdmin() {
		return domain.Forbidden("admin access required")
	}
	return nil
}
