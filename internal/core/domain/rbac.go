package domain

import "time"

// Role groups the permissions granted to an account.
type Role struct {
	ID          string
	Name        string
	Description *string
}

// Company is the tenant an account belongs to.
type Company struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
