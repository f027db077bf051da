package domain

import "time"

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusActive      AccountStatus = "active"
	AccountStatusSuspended   AccountStatus = "suspended"
	AccountStatusDeactivated AccountStatus = "deactivated"
	AccountStatusLocked      AccountStatus = "locked"
)

// MaxPasswordHistory bounds the number of remembered password hashes.
const MaxPasswordHistory = 5

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                 string
	Email              string
	Username           string
	PasswordHash       string
	PasswordHistory    []PasswordHistoryEntry
	FirstName          string
	LastName           string
	Status             AccountStatus
	DeactivatedAt      *time.Time
	DeactivationReason *string
	LastLogin          *time.Time
	LastPasswordChange *time.Time
	RoleID             string
	RoleName           string
	CompanyID          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PasswordHistoryEntry is one remembered password hash, newest first in Account.PasswordHistory.
type PasswordHistoryEntry struct {
	Hash      string    `json:"hash"`
	ChangedAt time.Time `json:"changedAt"`
}

// LockedAt returns the lock start time when the account is locked.
func (a Account) LockedAt() (time.Time, bool) {
	if a.Status != AccountStatusLocked || a.DeactivatedAt == nil {
		return time.Time{}, false
	}
	return *a.DeactivatedAt, true
}

// IsInactive reports whether the account was administratively disabled.
func (a Account) IsInactive() bool {
	return a.Status == AccountStatusSuspended || a.Status == AccountStatusDeactivated
}

// PrependPasswordHistory returns a new history with entry first, truncated to limit.
func PrependPasswordHistory(history []PasswordHistoryEntry, entry PasswordHistoryEntry, limit int) []PasswordHistoryEntry {
	if limit <= 0 {
		limit = MaxPasswordHistory
	}
	out := make([]PasswordHistoryEntry, 0, limit)
	out = append(out, entry)
	for _, h := range history {
		if len(out) == limit {
			break
		}
		out = append(out, h)
	}
	return out
}
