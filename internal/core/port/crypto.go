package port

import (
	"time"

	"github.com/evans-manyala/enxero/internal/core/domain"
)

// PasswordHasher hashes and verifies secrets using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}

// PasswordPolicyValidator enforces password strength requirements.
type PasswordPolicyValidator interface {
	Validate(password string, userInputs ...string) error
}

// TokenIssuer mints and verifies signed tokens.
type TokenIssuer interface {
	Issue(account domain.Account, now time.Time) (domain.TokenPair, error)
	Verify(token string, kind domain.TokenKind) (*domain.TokenPayload, error)
}
