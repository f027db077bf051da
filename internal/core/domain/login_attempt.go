package domain

import "time"

// FailedLoginAttempt is an append-only record of a rejected login.
// AccountID is nil when the email did not match any account.
type FailedLoginAttempt struct {
	ID        string
	Email     string
	AccountID *string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
}
