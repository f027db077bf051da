package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	red "github.com/redis/go-redis/v9"
)

const defaultRateLimitPrefix = "rate_limit"

// RateLimitStore keeps one sorted set of attempt timestamps (unix millis) per identifier.
type RateLimitStore struct {
	client *red.Client
	prefix string
}

// NewRateLimitStore builds a sliding-window store on client.
func NewRateLimitStore(client *red.Client, keyPrefix string) *RateLimitStore {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RateLimitStore{client: client, prefix: prefix}
}

// Observe drops attempts that left the window ending at now and returns how many
// remain together with the oldest one.
func (s *RateLimitStore) Observe(ctx context.Context, identifier string, window time.Duration, now time.Time) (int, time.Time, error) {
	if window <= 0 {
		return 0, time.Time{}, errors.New("window must be positive")
	}
	key := s.key(identifier)
	threshold := strconv.FormatInt(now.Add(-window).UnixMilli(), 10)

	var card *red.IntCmd
	var oldest *red.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "-inf", threshold)
		card = pipe.ZCard(ctx, key)
		oldest = pipe.ZRangeWithScores(ctx, key, 0, 0)
		return nil
	})
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis observe window: %w", err)
	}

	entries := oldest.Val()
	if len(entries) == 0 {
		return int(card.Val()), time.Time{}, nil
	}
	return int(card.Val()), time.UnixMilli(int64(entries[0].Score)).UTC(), nil
}

// Record adds an attempt at now and keeps the key alive for one window.
func (s *RateLimitStore) Record(ctx context.Context, identifier string, now time.Time, window time.Duration) error {
	key := s.key(identifier)
	member := red.Z{
		Score:  float64(now.UnixMilli()),
		Member: fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()),
	}

	_, err := s.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		pipe.ZAdd(ctx, key, member)
		if window > 0 {
			pipe.Expire(ctx, key, window)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis record attempt: %w", err)
	}
	return nil
}

func (s *RateLimitStore) key(identifier string) string {
	return fmt.Sprintf("%s:%s", s.prefix, identifier)
}
