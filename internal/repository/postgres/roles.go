package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/repository"
)

// RoleRepository implements port.RoleRepository using PostgreSQL.
type RoleRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewRoleRepository(exec pgExecutor) *RoleRepository {
	return &RoleRepository{exec: exec, builder: newBuilder()}
}

func (r *RoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	stmt, args, err := r.builder.
		Select("id", "name", "description").
		From("auth.roles").
		Where(squirrel.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role sql: %w", err)
	}

	var role domain.Role
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&role.ID, &role.Name, &role.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return &role, nil
}

// CompanyRepository implements port.CompanyRepository using PostgreSQL.
type CompanyRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewCompanyRepository(exec pgExecutor) *CompanyRepository {
	return &CompanyRepository{exec: exec, builder: newBuilder()}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CompanyRepository) WithTx(tx pgx.Tx) *CompanyRepository {
	if tx == nil {
		return r
	}
	return &CompanyRepository{exec: tx, builder: r.builder}
}

func (r *CompanyRepository) Create(ctx context.Context, company domain.Company) error {
	stmt, args, err := r.builder.Insert("auth.companies").
		Columns("id", "name", "created_at").
		Values(company.ID, company.Name, company.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert company sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert company: %w", repository.ErrConflict)
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

var (
	_ port.RoleRepository    = (*RoleRepository)(nil)
	_ port.CompanyRepository = (*CompanyRepository)(nil)
)
