package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/domain"
	"github.com/fastygo/taskflow/pkg/logger"
	"github.com/fastygo/taskflow/repository"
)

// TokenConfig controls issued access tokens.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims is the payload of an access token. SessionID ties the token to a
// revocable session.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Result is returned by register and login.
type Result struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type UseCase struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   TokenConfig
	cost     int
	logger   *zap.Logger
	now      func() time.Time
}

func New(users repository.UserRepository, sessions repository.SessionRepository, tokens TokenConfig, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tokens.TTL <= 0 {
		tokens.TTL = 24 * time.Hour
	}
	return &UseCase{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
		now:      time.Now,
	}
}

// Register creates an active user with the default role and signs them in.
func (uc *UseCase) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	name, err := ValidateName(in.Name)
	if err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidateNewPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}

	if _, err := uc.users.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password, uc.cost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		IsActive:     true,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.WithRequestID(ctx, uc.logger).Info("user registered", zap.String("user_id", user.ID))
	return uc.issue(ctx, user)
}

// Login verifies credentials. Unknown emails and wrong passwords are not
// distinguished.
func (uc *UseCase) Login(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		return nil, domain.Validation("please provide email and password")
	}

	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}

	now := uc.now().UTC()
	user.LastLogin = &now
	if err := uc.users.Update(ctx, user); err != nil {
		logger.WithRequestID(ctx, uc.logger).Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return uc.issue(ctx, user)
}

// Logout revokes the session behind a token.
func (uc *UseCase) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.ErrUnauthorized
	}
	return uc.sessions.Delete(ctx, sessionID)
}

// Refresh pushes the expiry of a live session forward by the token TTL and
// issues a new token for it.
func (uc *UseCase) Refresh(ctx context.Context, sessionID string) (*Result, error) {
	session, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.NewError(domain.ErrCodeUnauthorized, "session has been revoked, please login again")
		}
		return nil, err
	}
	user, err := uc.users.GetByID(ctx, session.UserID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "user not found or inactive")
	}

	now := uc.now()
	if err := uc.sessions.Extend(ctx, session.ID, int(uc.tokens.TTL/time.Second)); err != nil {
		return nil, err
	}
	session.ExpiresAt = now.Add(uc.tokens.TTL)
	return uc.sign(user, session, now)
}

// Authenticate resolves a bearer token to the principal behind it. The
// session must still exist and the user must still be active.
func (uc *UseCase) Authenticate(ctx context.Context, token string) (domain.Principal, string, error) {
	claims, err := uc.parse(token)
	if err != nil {
		return domain.Principal{}, "", err
	}

	session, err := uc.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Principal{}, "", domain.NewError(domain.ErrCodeUnauthorized, "session has been revoked, please login again")
		}
		return domain.Principal{}, "", err
	}
	if session.UserID != claims.UserID {
		return domain.Principal{}, "", domain.ErrUnauthorized
	}

	user, err := uc.users.GetByID(ctx, claims.UserID)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return domain.Principal{}, "", err
	}
	if user == nil || !user.IsActive {
		return domain.Principal{}, "", domain.NewError(domain.ErrCodeUnauthorized, "user not found or inactive")
	}

	return user.Principal(), session.ID, nil
}

func (uc *UseCase) issue(ctx context.Context, user *domain.User) (*Result, error) {
	now := uc.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(uc.tokens.TTL),
	}
	if err := uc.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return uc.sign(user, session, now)
}

func (uc *UseCase) sign(user *domain.User, session *domain.Session, now time.Time) (*Result, error) {
	claims := Claims{
		UserID:    user.ID,
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    uc.tokens.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.tokens.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Result{Token: signed, ExpiresAt: session.ExpiresAt, User: user}, nil
}

func (uc *UseCase) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "no token provided, please login")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(uc.tokens.Secret), nil
	})
	if err != nil {
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, domain.WrapError(domain.ErrCodeUnauthorized, "token has expired, please login again", err)
		}
		return nil, domain.WrapError(domain.ErrCodeUnauthorized, "invalid token, please login again", err)
	}
	if !parsed.Valid || claims.UserID == "" || claims.SessionID == "" {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "invalid token, please login again")
	}
	if uc.tokens.Issuer != "" && !claims.VerifyIssuer(uc.tokens.Issuer, true) {
		return nil, domain.NewError(domain.ErrCodeUnauthorized, "invalid token, please login again")
	}
	return claims, nil
}
