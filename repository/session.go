package repository

import (
	"context"

	"github.com/fastygo/taskflow/domain"
)

// SessionRepository tracks live sessions so tokens can be revoked before expiry.
type SessionRepository interface {
	// Get fails with ErrSessionNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	// DeleteByUser revokes every session of the user.
	DeleteByUser(ctx context.Context, userID string) error
	Extend(ctx context.Context, id string, ttlSeconds int) error
}
