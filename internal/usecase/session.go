package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/security"
	"github.com/evans-manyala/enxero/internal/repository"
)

// SessionConfig controls session lifetime and housekeeping.
type SessionConfig struct {
	TTL              time.Duration
	AttemptRetention time.Duration
	// RevocationTTL bounds how long a revoke-all marker is kept; use the access token TTL.
	RevocationTTL time.Duration
}

// SweepResult counts rows removed by one housekeeping pass.
type SweepResult struct {
	Sessions int64
	Attempts int64
}

// SessionService creates, lists and invalidates refresh-token sessions.
type SessionService struct {
	sessions    port.SessionRepository
	attempts    port.LoginAttemptRepository
	activity    *ActivityLogger
	revocations port.AccessRevocationStore
	metrics     port.AuthMetrics
	logger      *zap.Logger
	cfg         SessionConfig
	now         func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(sessions port.SessionRepository, attempts port.LoginAttemptRepository, activity *ActivityLogger, cfg SessionConfig, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.AttemptRetention <= 0 {
		cfg.AttemptRetention = 24 * time.Hour
	}
	if cfg.RevocationTTL <= 0 {
		cfg.RevocationTTL = 15 * time.Minute
	}
	return &SessionService{
		sessions: sessions,
		attempts: attempts,
		activity: activity,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithRevocationStore makes InvalidateAll revoke outstanding access tokens.
func (s *SessionService) WithRevocationStore(store port.AccessRevocationStore) *SessionService {
	s.revocations = store
	return s
}

// WithMetrics attaches sweep counters.
func (s *SessionService) WithMetrics(metrics port.AuthMetrics) *SessionService {
	s.metrics = metrics
	return s
}

// Create stores a session for refreshToken. A row already holding the same
// token hash is replaced.
func (s *SessionService) Create(ctx context.Context, accountID, refreshToken string, client ClientInfo) (*domain.Session, error) {
	if strings.TrimSpace(accountID) == "" || refreshToken == "" {
		return nil, newError(ErrValidation, "account id and token are required", nil)
	}
	now := s.now()
	session := domain.Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		TokenHash: security.HashToken(refreshToken),
		IP:        client.ipPtr(),
		UserAgent: client.userAgentPtr(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// ListActive returns the unexpired sessions of accountID, newest first.
func (s *SessionService) ListActive(ctx context.Context, accountID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActiveByAccount(ctx, accountID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Invalidate deletes the session backing refreshToken and returns it.
func (s *SessionService) Invalidate(ctx context.Context, refreshToken string) (*domain.Session, error) {
	session, err := s.sessions.DeleteByTokenHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "session not found", err)
		}
		return nil, fmt.Errorf("delete session: %w", err)
	}
	return session, nil
}

// InvalidateAll deletes every session of accountID and returns how many were removed.
func (s *SessionService) InvalidateAll(ctx context.Context, accountID string, client ClientInfo) (int64, error) {
	removed, err := s.sessions.DeleteByAccount(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}

	if s.revocations != nil {
		if err := s.revocations.MarkAccountRevoked(ctx, accountID, s.now(), s.cfg.RevocationTTL); err != nil {
			s.logger.Warn("revoke access tokens failed", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	if s.activity != nil {
		metadata := map[string]any{"count": removed}
		if err := s.activity.Record(ctx, accountID, domain.ActionSessionsRevoked, metadata, client); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

// Sweep removes expired sessions and failed attempts older than the retention period.
func (s *SessionService) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.now()
	var result SweepResult

	sessions, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return result, fmt.Errorf("sweep sessions: %w", err)
	}
	result.Sessions = sessions

	if s.attempts != nil {
		attempts, err := s.attempts.DeleteOlderThan(ctx, now.Add(-s.cfg.AttemptRetention))
		if err != nil {
			return result, fmt.Errorf("sweep login attempts: %w", err)
		}
		result.Attempts = attempts
	}

	if s.metrics != nil {
		s.metrics.ObserveSweep(result.Sessions, result.Attempts)
	}
	s.logger.Info("sweep completed",
		zap.Int64("sessions", result.Sessions),
		zap.Int64("attempts", result.Attempts),
	)
	return result, nil
}
