package postgres

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Accounts      *AccountRepository
	Roles         *RoleRepository
	Companies     *CompanyRepository
	Sessions      *SessionRepository
	LoginAttempts *LoginAttemptRepository
	Activities    *ActivityRepository
	Tx            *TxManager
}

// NewRepositories wires all repositories backed by db.
func NewRepositories(db DB) *Repositories {
	accounts := NewAccountRepository(db)
	companies := NewCompanyRepository(db)
	return &Repositories{
		Accounts:      accounts,
		Roles:         NewRoleRepository(db),
		Companies:     companies,
		Sessions:      NewSessionRepository(db),
		LoginAttempts: NewLoginAttemptRepository(db),
		Activities:    NewActivityRepository(db),
		Tx:            NewTxManager(db, accounts, companies),
	}
}
