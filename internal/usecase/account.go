package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/repository"
)

// AccountService handles credential maintenance for existing accounts.
type AccountService struct {
	accounts    port.AccountRepository
	hasher      port.PasswordHasher
	policy      port.PasswordPolicyValidator
	activity    *ActivityLogger
	historySize int
	logger      *zap.Logger
	now         func() time.Time
}

// NewAccountService constructs an AccountService. historySize <= 0 uses domain.MaxPasswordHistory.
func NewAccountService(accounts port.AccountRepository, hasher port.PasswordHasher, policy port.PasswordPolicyValidator, activity *ActivityLogger, historySize int, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historySize <= 0 {
		historySize = domain.MaxPasswordHistory
	}
	return &AccountService{
		accounts:    accounts,
		hasher:      hasher,
		policy:      policy,
		activity:    activity,
		historySize: historySize,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AccountService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// ChangePassword replaces the password of accountID after verifying the current one.
// The new password may not match any remembered hash.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, currentPassword, newPassword string, client ClientInfo) error {
	if currentPassword == "" || newPassword == "" {
		return newError(ErrValidation, "current and new password are required", nil)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "account not found", err)
		}
		return fmt.Errorf("load account: %w", err)
	}

	ok, err := s.hasher.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return newError(ErrInvalidCredential, "current password is incorrect", nil)
	}

	if s.policy != nil {
		if err := s.policy.Validate(newPassword, account.Email, account.Username, account.FirstName, account.LastName); err != nil {
			return newError(ErrValidation, err.Error(), err)
		}
	}

	reused, err := s.matchesHistory(newPassword, account)
	if err != nil {
		return err
	}
	if reused {
		return newError(ErrPasswordReused, fmt.Sprintf("password was used within the last %d changes", s.historySize), nil)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	history := domain.PrependPasswordHistory(account.PasswordHistory, domain.PasswordHistoryEntry{Hash: hash, ChangedAt: now}, s.historySize)
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, history, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "account not found", err)
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password changed", zap.String("account_id", account.ID))
	return s.activity.Record(ctx, account.ID, domain.ActionPasswordChanged, nil, client)
}

func (s *AccountService) matchesHistory(password string, account *domain.Account) (bool, error) {
	hashes := make([]string, 0, len(account.PasswordHistory)+1)
	if len(account.PasswordHistory) == 0 || account.PasswordHistory[0].Hash != account.PasswordHash {
		hashes = append(hashes, account.PasswordHash)
	}
	for _, entry := range account.PasswordHistory {
		hashes = append(hashes, entry.Hash)
	}

	for _, hash := range hashes {
		match, err := s.hasher.Verify(password, hash)
		if err != nil {
			return false, fmt.Errorf("verify password history: %w", err)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}
