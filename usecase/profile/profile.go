package profile

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/logger"
	"github.com/fastygo/taskflow/repository"
	"github.com/fastygo/taskflow/usecase/auth"
)

// UpdateInput lists the editable profile fields. Empty values are ignored.
type UpdateInput struct {
	Name   string
	Avatar string
}

type PasswordInput struct {
	Current string
	New     string
	Confirm string
}

type UseCase struct {
	users  repository.UserRepository
	cost   int
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:  users,
		cost:   bcrypt.DefaultCost,
		logger: logger,
	}
}

func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.users.GetByID(ctx, userID)
}

func (uc *UseCase) UpdateProfile(ctx context.Context, userID string, in UpdateInput) (*domain.User, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		name, err := auth.ValidateName(in.Name)
		if err != nil {
			return nil, err
		}
		user.Name = name
	}
	if avatar := strings.TrimSpace(in.Avatar); avatar != "" {
		user.Avatar = avatar
	}

	if err := uc.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword replaces the password after verifying the current one.
func (uc *UseCase) ChangePassword(ctx context.Context, userID string, in PasswordInput) error {
	if in.Current == "" || in.New == "" || in.Confirm == "" {
		return domain.Validation("please provide all required fields")
	}
	if err := auth.ValidateNewPassword(in.New, in.Confirm); err != nil {
		return err
	}

	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, in.Current) {
		return domain.NewError(domain.ErrCodeUnauthorized, "current password is incorrect")
	}

	hash, err := auth.HashPassword(in.New, uc.cost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := uc.users.Update(ctx, user); err != nil {
		return err
	}

	logger.WithRequestID(ctx, uc.logger).Info("password changed", zap.String("user_id", userID))
	return nil
}
