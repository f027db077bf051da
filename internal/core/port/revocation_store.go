package port

import (
	"context"
	"time"
)

// AccessRevocationStore records the moment all access tokens of an account were revoked.
type AccessRevocationStore interface {
	MarkAccountRevoked(ctx context.Context, accountID string, at time.Time, ttl time.Duration) error
	AccountRevokedAt(ctx context.Context, accountID string) (time.Time, bool, error)
}
