package usecase

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorUnwrapsKindAndCause(t *testing.T) {
	cause := errors.New("row missing")
	err := fmt.Errorf("outer: %w", newError(ErrNotFound, "account not found", cause))

	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected kind in chain")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}

	status, msg := StatusOf(err)
	if status != http.StatusNotFound || msg != "account not found" {
		t.Fatalf("got %d %q", status, msg)
	}
}

func TestErrorDefaultsTo500(t *testing.T) {
	err := &Error{Message: "boom"}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", err.StatusCode())
	}

	status, msg := StatusOf(errors.New("db exploded"))
	if status != http.StatusInternalServerError || msg != "internal server error" {
		t.Fatalf("got %d %q", status, msg)
	}
}

func TestErrorStatuses(t *testing.T) {
	tests := map[error]int{
		ErrConflict:          http.StatusConflict,
		ErrNotFound:          http.StatusNotFound,
		ErrInvalidCredential: http.StatusUnauthorized,
		ErrAccountLocked:     http.StatusLocked,
		ErrAccountInactive:   http.StatusForbidden,
		ErrInvalidToken:      http.StatusUnauthorized,
		ErrPasswordReused:    http.StatusBadRequest,
		ErrValidation:        http.StatusBadRequest,
		ErrConfig:            http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := newError(kind, "", nil).StatusCode(); got != want {
			t.Errorf("%v: status %d, want %d", kind, got, want)
		}
	}
}

func TestErrorMessageFallsBackToKind(t *testing.T) {
	if got := newError(ErrInvalidToken, "", nil).Error(); got != "invalid token" {
		t.Fatalf("unexpected message %q", got)
	}
}
