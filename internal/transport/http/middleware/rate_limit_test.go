package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type memoryRateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	err      error
}

func newMemoryRateLimitStore() *memoryRateLimitStore {
	return &memoryRateLimitStore{attempts: map[string][]time.Time{}}
}

func (s *memoryRateLimitStore) Observe(_ context.Context, identifier string, window time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, time.Time{}, s.err
	}
	kept := s.attempts[identifier][:0]
	for _, at := range s.attempts[identifier] {
		if at.After(now.Add(-window)) {
			kept = append(kept, at)
		}
	}
	s.attempts[identifier] = kept
	if len(kept) == 0 {
		return 0, time.Time{}, nil
	}
	return len(kept), kept[0], nil
}

func (s *memoryRateLimitStore) Record(_ context.Context, identifier string, now time.Time, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[identifier] = append(s.attempts[identifier], now)
	return nil
}

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/login", rl.RateLimit(RateLimitRule{
		Name:       "login",
		Limit:      2,
		Window:     time.Minute,
		Identifier: ClientIPIdentifier(),
	}), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func post(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(newMemoryRateLimitStore(), nil).WithClock(func() time.Time { return now })
	r := newLimitedRouter(rl)

	first := post(r)
	if first.Code != http.StatusOK || first.Header().Get("X-RateLimit-Remaining") != "1" {
		t.Fatalf("unexpected first response %d remaining=%s", first.Code, first.Header().Get("X-RateLimit-Remaining"))
	}
	now = now.Add(10 * time.Second)
	if rr := post(r); rr.Code != http.StatusOK {
		t.Fatalf("second request should pass, got %d", rr.Code)
	}

	now = now.Add(10 * time.Second)
	blocked := post(r)
	if blocked.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", blocked.Code)
	}
	if got := blocked.Header().Get("Retry-After"); got != "40" {
		t.Fatalf("expected Retry-After 40, got %q", got)
	}

	now = now.Add(41 * time.Second)
	if rr := post(r); rr.Code != http.StatusOK {
		t.Fatalf("expected window to slide, got %d", rr.Code)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	store := newMemoryRateLimitStore()
	store.err = errors.New("redis down")
	r := newLimitedRouter(NewRateLimiter(store, nil))

	for i := 0; i < 5; i++ {
		if rr := post(r); rr.Code != http.StatusOK {
			t.Fatalf("request %d should pass when the store fails, got %d", i, rr.Code)
		}
	}
}

func TestRateLimitNilLimiterIsNoop(t *testing.T) {
	var rl *RateLimiter
	r := newLimitedRouter(rl)

	for i := 0; i < 5; i++ {
		if rr := post(r); rr.Code != http.StatusOK {
			t.Fatalf("expected pass-through, got %d", rr.Code)
		}
	}
}
