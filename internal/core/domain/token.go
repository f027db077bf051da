package domain

import "time"

// TokenKind distinguishes access from refresh tokens.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenPair is the result of a successful register, login or refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenPayload is the verified content of a signed token.
type TokenPayload struct {
	AccountID string
	RoleID    string
	Kind      TokenKind
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
