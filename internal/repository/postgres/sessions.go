package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/repository"
)

var sessionColumns = []string{
	"id",
	"account_id",
	"token_hash",
	"ip",
	"user_agent",
	"created_at",
	"expires_at",
}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{exec: exec, builder: newBuilder()}
}

// Create inserts the session. A row already holding the token hash is overwritten.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Insert("auth.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.AccountID,
			session.TokenHash,
			session.IP,
			session.UserAgent,
			session.CreatedAt,
			session.ExpiresAt,
		).
		Suffix("ON CONFLICT (token_hash) DO UPDATE SET " +
			"id = EXCLUDED.id, " +
			"account_id = EXCLUDED.account_id, " +
			"ip = EXCLUDED.ip, " +
			"user_agent = EXCLUDED.user_agent, " +
			"created_at = EXCLUDED.created_at, " +
			"expires_at = EXCLUDED.expires_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// ListActiveByAccount returns unexpired sessions, newest first.
func (r *SessionRepository) ListActiveByAccount(ctx context.Context, accountID string, now time.Time) ([]domain.Session, error) {
	stmt, args, err := r.builder.
		Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.Gt{"expires_at": now}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// DeleteByTokenHash atomically removes and returns the session holding tokenHash.
func (r *SessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	stmt, args, err := r.builder.Delete("auth.sessions").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Suffix("RETURNING id, account_id, token_hash, ip, user_agent, created_at, expires_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build delete session sql: %w", err)
	}

	session, err := scanSession(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("delete session: %w", err)
	}
	return session, nil
}

func (r *SessionRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	return r.delete(ctx, "delete account sessions", squirrel.Eq{"account_id": accountID})
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.delete(ctx, "delete expired sessions", squirrel.LtOrEq{"expires_at": now})
}

func (r *SessionRepository) delete(ctx context.Context, op string, pred squirrel.Sqlizer) (int64, error) {
	stmt, args, err := r.builder.Delete("auth.sessions").Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s sql: %w", op, err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(
		&session.ID,
		&session.AccountID,
		&session.TokenHash,
		&session.IP,
		&session.UserAgent,
		&session.CreatedAt,
		&session.ExpiresAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
