package domain

import "time"

// ActivityAction names a security-relevant event in the audit trail.
type ActivityAction string

const (
	ActionUserRegistered  ActivityAction = "USER_REGISTERED"
	ActionUserLoggedIn    ActivityAction = "USER_LOGGED_IN"
	ActionTokenRefreshed  ActivityAction = "TOKEN_REFRESHED"
	ActionUserLoggedOut   ActivityAction = "USER_LOGGED_OUT"
	ActionPasswordChanged ActivityAction = "PASSWORD_CHANGED"
	ActionAccountLocked   ActivityAction = "ACCOUNT_LOCKED"
	ActionAccountUnlocked ActivityAction = "ACCOUNT_UNLOCKED"
	ActionSessionsRevoked ActivityAction = "SESSIONS_REVOKED"
)

// Activity is an append-only audit record tied to an account.
type Activity struct {
	ID        string
	AccountID string
	Action    ActivityAction
	Metadata  map[string]any
	IP        *string
	UserAgent *string
	CreatedAt time.Time
}
