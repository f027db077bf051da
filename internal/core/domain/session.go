package domain

import "time"

// Session backs one issued refresh token. Only the token hash is persisted.
type Session struct {
	ID        string
	AccountID string
	TokenHash string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsActive reports whether the session has not yet expired at the supplied moment.
func (s Session) IsActive(at time.Time) bool {
	return s.ExpiresAt.After(at)
}
