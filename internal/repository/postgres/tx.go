package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/evans-manyala/enxero/internal/core/port"
)

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxManager implements port.TxManager with a pgx transaction.
type TxManager struct {
	db        txBeginner
	accounts  *AccountRepository
	companies *CompanyRepository
}

func NewTxManager(db txBeginner, accounts *AccountRepository, companies *CompanyRepository) *TxManager {
	return &TxManager{db: db, accounts: accounts, companies: companies}
}

// WithinTx commits when fn returns nil and rolls back otherwise, including on panic.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.TxRepositories) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	repos := port.TxRepositories{
		Accounts:  m.accounts.WithTx(tx),
		Companies: m.companies.WithTx(tx),
	}
	if err := fn(ctx, repos); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

var _ port.TxManager = (*TxManager)(nil)
