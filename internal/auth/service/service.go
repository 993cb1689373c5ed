// Package service authenticates staff users and records session events in
// the audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	auditmodels "intia/internal/audit/models"
	auditsvc "intia/internal/audit/service"
	"intia/internal/platform/metrics"
	"intia/internal/ratelimit"
	usermodels "intia/internal/user/models"
	"intia/pkg/domain"
	dErrors "intia/pkg/domain-errors"
	"intia/pkg/platform/sentinel"
)

// UserStore resolves accounts by username.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*usermodels.User, error)
}

// TokenMinter issues access tokens.
type TokenMinter interface {
	GenerateAccessToken(userID domain.UserID, ttl time.Duration) (string, error)
}

// Auditor records the audit trail.
type Auditor interface {
	Append(ctx context.Context, rec auditsvc.Record) (*auditmodels.Entry, error)
}

type Service struct {
	users    UserStore
	tokens   TokenMinter
	audit    Auditor
	lockout  *ratelimit.Lockout
	tokenTTL time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(
	users UserStore,
	tokens TokenMinter,
	audit Auditor,
	lockout *ratelimit.Lockout,
	tokenTTL time.Duration,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		tokens:   tokens,
		audit:    audit,
		lockout:  lockout,
		tokenTTL: tokenTTL,
		metrics:  m,
		logger:   logger,
	}
}

// TokenTTL returns the configured access-token lifetime. The handler uses
// it for the session cookie's max age.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Login verifies the credentials and mints an access token. Failures are
// deliberately indistinguishable between unknown username and wrong
// password.
func (s *Service) Login(ctx context.Context, username, password string) (string, *usermodels.User, error) {
	locked, err := s.lockout.IsLocked(ctx, username)
	if err == nil && locked {
		s.metrics.IncrementLockout()
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "too many failed login attempts, try again later")
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, s.failLogin(ctx, username)
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, s.failLogin(ctx, username)
	}
	if !user.IsActive {
		return "", nil, dErrors.New(dErrors.CodeBadRequest, "inactive user")
	}

	if err := s.lockout.Reset(ctx, username); err != nil {
		s.logger.WarnContext(ctx, "failed to reset login failure counter",
			"username", username, "error", err)
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, s.tokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if _, err := s.audit.Append(ctx, auditsvc.Record{
		ActorID:      user.ID,
		Username:     user.Username,
		Action:       auditmodels.ActionLogin,
		ResourceType: auditmodels.ResourceUser,
		ResourceID:   user.ID.String(),
	}); err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *Service) failLogin(ctx context.Context, username string) error {
	s.metrics.IncrementLoginFailure()
	if err := s.lockout.RecordFailure(ctx, username); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure",
			"username", username, "error", err)
	}
	return dErrors.New(dErrors.CodeUnauthorized, "incorrect username or password")
}

// Logout records the session end. The token itself is stateless; revocation
// happens client-side by dropping the cookie.
func (s *Service) Logout(ctx context.Context, user *usermodels.User) error {
	_, err := s.audit.Append(ctx, auditsvc.Record{
		ActorID:      user.ID,
		Username:     user.Username,
		Action:       auditmodels.ActionLogout,
		ResourceType: auditmodels.ResourceUser,
		ResourceID:   user.ID.String(),
	})
	return err
}
