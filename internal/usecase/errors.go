package usecase

import (
	"errors"
	"net/http"
)

var (
	// ErrConflict indicates a uniqueness violation such as a taken email.
	ErrConflict = errors.New("conflict")
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredential indicates an unknown email or a wrong password.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrAccountLocked indicates the account is inside its lockout window.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive indicates the account was suspended or deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrInvalidToken indicates a token failed verification or has no live session.
	ErrInvalidToken = errors.New("invalid token")
	// ErrPasswordReused indicates the new password matches a remembered one.
	ErrPasswordReused = errors.New("password reused")
	// ErrValidation indicates malformed input or a policy rejection.
	ErrValidation = errors.New("validation failed")
	// ErrConfig indicates the system is missing required setup data.
	ErrConfig = errors.New("configuration error")
)

var defaultStatus = map[error]int{
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

// Error is a domain failure carrying the HTTP status the transport should answer with.
type Error struct {
	Kind    error
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != nil {
		return e.Kind.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.StatusCode())
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// StatusCode returns the carried status, 500 when none was set.
func (e *Error) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func newError(kind error, message string, cause error) *Error {
	status, ok := defaultStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: kind, Status: status, Message: message, Err: cause}
}

// StatusOf returns the HTTP status for err and a client-safe message.
// Errors that are not *Error map to 500 with a generic message.
func StatusOf(err error) (int, string) {
	var ue *Error
	if errors.As(err, &ue) {
		status := ue.StatusCode()
		if status >= http.StatusInternalServerError {
			return status, "internal server error"
		}
		return status, ue.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}
