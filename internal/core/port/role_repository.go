package port

import (
	"context"

	"github.com/evans-manyala/enxero/internal/core/domain"
)

// RoleRepository resolves roles.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
}

// CompanyRepository creates tenant companies.
type CompanyRepository interface {
	Create(ctx context.Context, company domain.Company) error
}
