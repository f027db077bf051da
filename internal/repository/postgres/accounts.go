package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/repository"
)

var accountColumns = []string{
	"a.id",
	"a.email",
	"a.username",
	"a.password_hash",
	"a.password_history",
	"a.first_name",
	"a.last_name",
	"a.status",
	"a.deactivated_at",
	"a.deactivation_reason",
	"a.last_login",
	"a.last_password_change",
	"a.role_id",
	"COALESCE(r.name, '')",
	"a.company_id",
	"a.created_at",
	"a.updated_at",
}

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{exec: exec, builder: newBuilder()}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{exec: tx, builder: r.builder}
}

// Create inserts a new account row. A duplicate email or username yields repository.ErrConflict.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	history, err := encodeHistory(account.PasswordHistory)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert("auth.accounts").
		Columns(
			"id",
			"email",
			"username",
			"password_hash",
			"password_history",
			"first_name",
			"last_name",
			"status",
			"role_id",
			"company_id",
			"created_at",
			"updated_at",
		).
		Values(
			account.ID,
			account.Email,
			account.Username,
			account.PasswordHash,
			history,
			account.FirstName,
			account.LastName,
			string(account.Status),
			account.RoleID,
			account.CompanyID,
			account.CreatedAt,
			account.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert account: %w", repository.ErrConflict)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"a.id": id})
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"a.email": email})
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getBy(ctx, squirrel.Eq{"a.username": username})
}

func (r *AccountRepository) getBy(ctx context.Context, pred squirrel.Eq) (*domain.Account, error) {
	stmt, args, err := r.builder.
		Select(accountColumns...).
		From("auth.accounts a").
		LeftJoin("auth.roles r ON r.id = a.role_id").
		Where(pred).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	account, err := scanAccount(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return account, nil
}

func (r *AccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	stmt, args, err := r.builder.Update("auth.accounts").
		Set("last_login", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update last login sql: %w", err)
	}
	return r.execOne(ctx, "update last login", stmt, args)
}

// Lock moves an active account into the locked state starting at lockedAt.
func (r *AccountRepository) Lock(ctx context.Context, id string, lockedAt time.Time, reason string) error {
	stmt, args, err := r.builder.Update("auth.accounts").
		Set("status", string(domain.AccountStatusLocked)).
		Set("deactivated_at", lockedAt).
		Set("deactivation_reason", reason).
		Set("updated_at", lockedAt).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": string(domain.AccountStatusActive)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build lock account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	return nil
}

// UnlockIfExpired reactivates the account only if its lock started at or before cutoff.
func (r *AccountRepository) UnlockIfExpired(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	stmt, args, err := r.builder.Update("auth.accounts").
		Set("status", string(domain.AccountStatusActive)).
		Set("deactivated_at", nil).
		Set("deactivation_reason", nil).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": string(domain.AccountStatusLocked)}).
		Where(squirrel.LtOrEq{"deactivated_at": cutoff}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build unlock account sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("unlock account: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdatePassword stores the new hash and history in one statement.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash string, history []domain.PasswordHistoryEntry, changedAt time.Time) error {
	encoded, err := encodeHistory(history)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Update("auth.accounts").
		Set("password_hash", passwordHash).
		Set("password_history", encoded).
		Set("last_password_change", changedAt).
		Set("updated_at", changedAt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}
	return r.execOne(ctx, "update password", stmt, args)
}

func (r *AccountRepository) execOne(ctx context.Context, op, stmt string, args []any) error {
	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		history []byte
		status  string
	)

	if err := row.Scan(
		&account.ID,
		&account.Email,
		&account.Username,
		&account.PasswordHash,
		&history,
		&account.FirstName,
		&account.LastName,
		&status,
		&account.DeactivatedAt,
		&account.DeactivationReason,
		&account.LastLogin,
		&account.LastPasswordChange,
		&account.RoleID,
		&account.RoleName,
		&account.CompanyID,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	account.Status = domain.AccountStatus(status)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &account.PasswordHistory); err != nil {
			return nil, fmt.Errorf("decode password history: %w", err)
		}
	}
	return &account, nil
}

func encodeHistory(history []domain.PasswordHistoryEntry) ([]byte, error) {
	if history == nil {
		history = []domain.PasswordHistoryEntry{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encode password history: %w", err)
	}
	return b, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
