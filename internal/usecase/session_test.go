package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/infra/security"
)

func TestSessionCreateReplacesSameToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.sessions.Create(ctx, "acc-1", "token-a", ClientInfo{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.TokenHash != security.HashToken("token-a") {
		t.Fatal("session must store the token hash")
	}
	if !first.ExpiresAt.Equal(h.clock.Now().Add(24 * time.Hour)) {
		t.Fatalf("unexpected expiry %v", first.ExpiresAt)
	}

	h.clock.Advance(time.Minute)
	second, err := h.sessions.Create(ctx, "acc-1", "token-a", ClientInfo{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.store.sessionCount() != 1 {
		t.Fatalf("expected replacement, have %d sessions", h.store.sessionCount())
	}
	if h.store.sessions[first.TokenHash].ID != second.ID {
		t.Fatal("expected the newer session to win")
	}
}

func TestSessionCreateValidatesInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.sessions.Create(context.Background(), "", "token", ClientInfo{})
	requireKind(t, err, ErrValidation)
}

func TestListActiveNewestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, token := range []string{"t1", "t2", "t3"} {
		if _, err := h.sessions.Create(ctx, "acc-1", token, ClientInfo{}); err != nil {
			t.Fatalf("Create: %v", err)
		}
		h.clock.Advance(time.Hour)
	}
	if _, err := h.sessions.Create(ctx, "acc-2", "other", ClientInfo{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// t1 was created 24h before this point and is now expired.
	h.clock.Advance(21 * time.Hour)

	sessions, err := h.sessions.ListActive(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected two active sessions, got %d", len(sessions))
	}
	if sessions[0].TokenHash != security.HashToken("t3") || sessions[1].TokenHash != security.HashToken("t2") {
		t.Fatal("expected newest first")
	}
}

func TestInvalidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.sessions.Create(ctx, "acc-1", "token", ClientInfo{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := h.sessions.Invalidate(ctx, "token")
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if removed.ID != created.ID {
		t.Fatal("expected the created session back")
	}

	_, err = h.sessions.Invalidate(ctx, "token")
	requireKind(t, err, ErrNotFound)
}

func TestInvalidateAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, token := range []string{"a", "b"} {
		if _, err := h.sessions.Create(ctx, "acc-1", token, ClientInfo{}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := h.sessions.Create(ctx, "acc-2", "c", ClientInfo{}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := h.sessions.InvalidateAll(ctx, "acc-1", ClientInfo{})
	if err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if h.store.sessionCount() != 1 {
		t.Fatal("other account's session must survive")
	}
	if _, ok := h.revocations.revoked["acc-1"]; !ok {
		t.Fatal("expected revocation marker")
	}
	if h.store.countAction(domain.ActionSessionsRevoked) != 1 {
		t.Fatal("expected SESSIONS_REVOKED activity")
	}
}

func TestSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.sessions.Create(ctx, "acc-1", "old", ClientInfo{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.lockout.RecordFailure(ctx, "ghost@example.com", ClientInfo{}); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	h.clock.Advance(23 * time.Hour)
	if _, err := h.sessions.Create(ctx, "acc-1", "fresh", ClientInfo{}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := h.lockout.RecordFailure(ctx, "ghost@example.com", ClientInfo{}); err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}

	h.clock.Advance(time.Hour)
	result, err := h.sessions.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Sessions != 1 {
		t.Fatalf("expected one expired session removed, got %d", result.Sessions)
	}
	// The first attempt is exactly 24h old, which is not older than the retention.
	if result.Attempts != 0 {
		t.Fatalf("expected no attempts removed yet, got %d", result.Attempts)
	}

	h.clock.Advance(time.Second)
	result, err = h.sessions.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if result.Attempts != 1 {
		t.Fatalf("expected one attempt removed, got %d", result.Attempts)
	}
	if h.metrics.swept != [2]int64{1, 1} {
		t.Fatalf("unexpected sweep metrics %v", h.metrics.swept)
	}
	if h.store.sessionCount() != 1 {
		t.Fatal("fresh session must survive")
	}
}
