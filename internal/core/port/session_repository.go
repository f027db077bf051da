package port

import (
	"context"
	"time"

	"github.com/evans-manyala/enxero/internal/core/domain"
)

// SessionRepository deals with session storage.
type SessionRepository interface {
	// Create inserts the session, replacing any row holding the same token hash.
	Create(ctx context.Context, session domain.Session) error
	ListActiveByAccount(ctx context.Context, accountID string, now time.Time) ([]domain.Session, error)
	// DeleteByTokenHash removes exactly one session and returns it.
	DeleteByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LoginAttemptRepository stores failed login attempts.
type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt domain.FailedLoginAttempt) error
	CountByAccountSince(ctx context.Context, accountID string, since time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// ActivityRepository appends audit records.
type ActivityRepository interface {
	Append(ctx context.Context, activity domain.Activity) error
}
