package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/logger"
	"github.com/evans-manyala/enxero/internal/repository"
)

const lockReason = "too many failed login attempts"

// LockoutConfig controls when failed logins lock an account and for how long.
type LockoutConfig struct {
	Threshold int
	Window    time.Duration
	Duration  time.Duration
	// RevocationTTL bounds how long a lock-triggered access revocation is remembered.
	RevocationTTL time.Duration
}

// DefaultLockoutConfig returns five failures in fifteen minutes, locked for fifteen minutes.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		Threshold:     5,
		Window:        15 * time.Minute,
		Duration:      15 * time.Minute,
		RevocationTTL: 15 * time.Minute,
	}
}

// LockoutTracker records failed logins and locks or lazily unlocks accounts.
type LockoutTracker struct {
	accounts    port.AccountRepository
	attempts    port.LoginAttemptRepository
	activity    *ActivityLogger
	revocations port.AccessRevocationStore
	metrics     port.AuthMetrics
	logger      *zap.Logger
	cfg         LockoutConfig
	now         func() time.Time
}

// NewLockoutTracker constructs a LockoutTracker. Zero config fields fall back to defaults.
func NewLockoutTracker(accounts port.AccountRepository, attempts port.LoginAttemptRepository, activity *ActivityLogger, cfg LockoutConfig, logger *zap.Logger) *LockoutTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultLockoutConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Duration <= 0 {
		cfg.Duration = def.Duration
	}
	if cfg.RevocationTTL <= 0 {
		cfg.RevocationTTL = def.RevocationTTL
	}
	return &LockoutTracker{
		accounts: accounts,
		attempts: attempts,
		activity: activity,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (t *LockoutTracker) WithClock(clock func() time.Time) {
	if clock != nil {
		t.now = clock
	}
}

// WithRevocationStore makes a lock revoke outstanding access tokens.
func (t *LockoutTracker) WithRevocationStore(store port.AccessRevocationStore) *LockoutTracker {
	t.revocations = store
	return t
}

// WithMetrics attaches lockout counters.
func (t *LockoutTracker) WithMetrics(metrics port.AuthMetrics) *LockoutTracker {
	t.metrics = metrics
	return t
}

// RecordFailure stores a failed login for email and locks the matching account
// once the threshold is reached inside the window. It reports whether a lock was applied.
func (t *LockoutTracker) RecordFailure(ctx context.Context, email string, client ClientInfo) (bool, error) {
	account, err := t.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("lookup account: %w", err)
		}
		account = nil
	}
	return t.recordFailure(ctx, normalizeEmail(email), account, client)
}

func (t *LockoutTracker) recordFailure(ctx context.Context, email string, account *domain.Account, client ClientInfo) (bool, error) {
	now := t.now()
	attempt := domain.FailedLoginAttempt{
		ID:        uuid.NewString(),
		Email:     email,
		IP:        client.ipPtr(),
		UserAgent: client.userAgentPtr(),
		CreatedAt: now,
	}
	if account != nil {
		id := account.ID
		attempt.AccountID = &id
	}
	if err := t.attempts.Create(ctx, attempt); err != nil {
		return false, fmt.Errorf("record failed attempt: %w", err)
	}

	if account == nil || account.Status != domain.AccountStatusActive {
		return false, nil
	}

	count, err := t.attempts.CountByAccountSince(ctx, account.ID, now.Add(-t.cfg.Window))
	if err != nil {
		return false, fmt.Errorf("count failed attempts: %w", err)
	}
	if count < t.cfg.Threshold {
		return false, nil
	}

	if err := t.accounts.Lock(ctx, account.ID, now, lockReason); err != nil {
		return false, fmt.Errorf("lock account: %w", err)
	}

	t.logger.Warn("account locked",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(email)),
		zap.Int("failed_attempts", count),
	)

	if t.metrics != nil {
		t.metrics.IncLockout()
	}
	if t.revocations != nil {
		if err := t.revocations.MarkAccountRevoked(ctx, account.ID, now, t.cfg.RevocationTTL); err != nil {
			t.logger.Warn("revoke access tokens on lock failed", zap.String("account_id", account.ID), zap.Error(err))
		}
	}

	metadata := map[string]any{
		"reason":         lockReason,
		"failedAttempts": count,
		"lockedUntil":    now.Add(t.cfg.Duration).Format(time.RFC3339),
	}
	if err := t.activity.Record(ctx, account.ID, domain.ActionAccountLocked, metadata, client); err != nil {
		return true, err
	}
	return true, nil
}

// IsLocked reports whether account is still inside its lockout window. An expired
// lock is cleared on the spot and the account is treated as unlocked.
func (t *LockoutTracker) IsLocked(ctx context.Context, account domain.Account) (bool, error) {
	lockedAt, ok := account.LockedAt()
	if !ok {
		return false, nil
	}

	now := t.now()
	if now.Before(lockedAt.Add(t.cfg.Duration)) {
		return true, nil
	}

	unlocked, err := t.accounts.UnlockIfExpired(ctx, account.ID, now.Add(-t.cfg.Duration))
	if err != nil {
		return false, fmt.Errorf("unlock account: %w", err)
	}
	if unlocked {
		t.logger.Info("account auto-unlocked", zap.String("account_id", account.ID))
		metadata := map[string]any{"lockedAt": lockedAt.Format(time.RFC3339)}
		if err := t.activity.Record(ctx, account.ID, domain.ActionAccountUnlocked, metadata, ClientInfo{}); err != nil {
			return false, err
		}
	}
	return false, nil
}

// LockedUntil returns the moment the current lock on account expires.
func (t *LockoutTracker) LockedUntil(account domain.Account) (time.Time, bool) {
	lockedAt, ok := account.LockedAt()
	if !ok {
		return time.Time{}, false
	}
	return lockedAt.Add(t.cfg.Duration), true
}
