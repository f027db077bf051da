package port

import "context"

// TxRepositories are the repositories bound to one transaction.
type TxRepositories struct {
	Accounts  AccountRepository
	Companies CompanyRepository
}

// TxManager runs fn atomically; returning an error rolls everything back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}
