package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/evans-manyala/enxero/internal/core/port"
)

const defaultRevocationPrefix = "access_revoked"

// RevocationStore implements port.AccessRevocationStore. Each account has one key holding
// the unix time before which its access tokens are rejected.
type RevocationStore struct {
	client *red.Client
	prefix string
}

func NewRevocationStore(client *red.Client, keyPrefix string) *RevocationStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRevocationPrefix
	}
	return &RevocationStore{client: client, prefix: prefix}
}

// MarkAccountRevoked records at for accountID. ttl should cover the access token lifetime.
func (s *RevocationStore) MarkAccountRevoked(ctx context.Context, accountID string, at time.Time, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("ttl must be positive")
	}
	key := s.key(accountID)
	if key == "" {
		return errors.New("account id must not be empty")
	}

	if err := s.client.Set(ctx, key, strconv.FormatInt(at.Unix(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("redis set account revocation: %w", err)
	}
	return nil
}

// AccountRevokedAt returns the stored revocation time, if any.
func (s *RevocationStore) AccountRevokedAt(ctx context.Context, accountID string) (time.Time, bool, error) {
	key := s.key(accountID)
	if key == "" {
		return time.Time{}, false, errors.New("account id must not be empty")
	}

	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("redis get account revocation: %w", err)
	}

	unix, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse account revocation %q: %w", value, err)
	}
	return time.Unix(unix, 0).UTC(), true, nil
}

func (s *RevocationStore) key(accountID string) string {
	trimmed := strings.TrimSpace(accountID)
	if trimmed == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s", s.prefix, trimmed)
}

var _ port.AccessRevocationStore = (*RevocationStore)(nil)
