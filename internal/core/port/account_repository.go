package port

import (
	"context"
	"time"

	"github.com/evans-manyala/enxero/internal/core/domain"
)

// AccountRepository exposes persistence behavior for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// Lock sets status locked with lockedAt as the lock start.
	Lock(ctx context.Context, id string, lockedAt time.Time, reason string) error
	// UnlockIfExpired clears the lock when it started at or before cutoff.
	// It reports whether a row changed.
	UnlockIfExpired(ctx context.Context, id string, cutoff time.Time) (bool, error)
	UpdatePassword(ctx context.Context, id string, passwordHash string, history []domain.PasswordHistoryEntry, changedAt time.Time) error
}
