package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
)

// LoginAttemptRepository implements port.LoginAttemptRepository backed by PostgreSQL.
type LoginAttemptRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewLoginAttemptRepository(exec pgExecutor) *LoginAttemptRepository {
	return &LoginAttemptRepository{exec: exec, builder: newBuilder()}
}

func (r *LoginAttemptRepository) Create(ctx context.Context, attempt domain.FailedLoginAttempt) error {
	stmt, args, err := r.builder.Insert("auth.failed_login_attempts").
		Columns("id", "email", "account_id", "ip", "user_agent", "created_at").
		Values(attempt.ID, attempt.Email, attempt.AccountID, attempt.IP, attempt.UserAgent, attempt.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert login attempt sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}
	return nil
}

// CountByAccountSince counts failures recorded for accountID at or after since.
func (r *LoginAttemptRepository) CountByAccountSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("auth.failed_login_attempts").
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count login attempts sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count login attempts: %w", err)
	}
	return count, nil
}

func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	stmt, args, err := r.builder.Delete("auth.failed_login_attempts").
		Where(squirrel.Lt{"created_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete login attempts sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete login attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ port.LoginAttemptRepository = (*LoginAttemptRepository)(nil)
