package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/evans-manyala/enxero/internal/core/domain"
)

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	reg := h.registerAlice(t)
	ctx := context.Background()
	h.clock.Advance(time.Hour)

	if err := h.accounts.ChangePassword(ctx, reg.User.ID, alicePassword, "N3w!Password", ClientInfo{}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	account := h.store.account(t, reg.User.ID)
	if account.PasswordHash != "hashed:N3w!Password" {
		t.Fatalf("password not updated: %s", account.PasswordHash)
	}
	if len(account.PasswordHistory) != 2 || account.PasswordHistory[0].Hash != account.PasswordHash {
		t.Fatalf("unexpected history %+v", account.PasswordHistory)
	}
	if account.LastPasswordChange == nil || !account.LastPasswordChange.Equal(h.clock.Now()) {
		t.Fatalf("last password change not set: %v", account.LastPasswordChange)
	}
	if h.store.countAction(domain.ActionPasswordChanged) != 1 {
		t.Fatal("expected PASSWORD_CHANGED activity")
	}

	if _, err := h.auth.Login(ctx, LoginInput{Email: "alice@example.com", Password: "N3w!Password"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestChangePasswordErrors(t *testing.T) {
	h := newHarness(t)
	reg := h.registerAlice(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		accountID string
		current   string
		next      string
		kind      error
	}{
		{name: "unknown account", accountID: "missing", current: alicePassword, next: "N3w!Password", kind: ErrNotFound},
		{name: "wrong current", accountID: reg.User.ID, current: "nope", next: "N3w!Password", kind: ErrInvalidCredential},
		{name: "weak new", accountID: reg.User.ID, current: alicePassword, next: "weak", kind: ErrValidation},
		{name: "same as current", accountID: reg.User.ID, current: alicePassword, next: alicePassword, kind: ErrPasswordReused},
		{name: "empty", accountID: reg.User.ID, current: "", next: "", kind: ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := h.accounts.ChangePassword(ctx, tc.accountID, tc.current, tc.next, ClientInfo{})
			requireKind(t, err, tc.kind)
		})
	}

	if h.store.account(t, reg.User.ID).PasswordHash != "hashed:"+alicePassword {
		t.Fatal("failed changes must not touch the stored hash")
	}
}

func TestChangePasswordHistoryWindow(t *testing.T) {
	h := newHarness(t)
	reg := h.registerAlice(t)
	ctx := context.Background()

	current := alicePassword
	for i := 1; i <= 5; i++ {
		next := fmt.Sprintf("Rotat3!d-%d", i)
		if err := h.accounts.ChangePassword(ctx, reg.User.ID, current, next, ClientInfo{}); err != nil {
			t.Fatalf("change %d: %v", i, err)
		}
		current = next
	}

	account := h.store.account(t, reg.User.ID)
	if len(account.PasswordHistory) != domain.MaxPasswordHistory {
		t.Fatalf("history length = %d, want %d", len(account.PasswordHistory), domain.MaxPasswordHistory)
	}

	// Rotat3!d-1 is the oldest remembered entry.
	err := h.accounts.ChangePassword(ctx, reg.User.ID, current, "Rotat3!d-1", ClientInfo{})
	requireKind(t, err, ErrPasswordReused)

	// The registration password has dropped out of the window.
	if err := h.accounts.ChangePassword(ctx, reg.User.ID, current, alicePassword, ClientInfo{}); err != nil {
		t.Fatalf("reusing an evicted password should succeed: %v", err)
	}
}

func TestChangePasswordChecksCurrentWhenHistoryEmpty(t *testing.T) {
	h := newHarness(t)
	reg := h.registerAlice(t)

	account := h.store.accounts[reg.User.ID]
	account.PasswordHistory = nil
	h.store.accounts[reg.User.ID] = account

	err := h.accounts.ChangePassword(context.Background(), reg.User.ID, alicePassword, alicePassword, ClientInfo{})
	requireKind(t, err, ErrPasswordReused)
}
