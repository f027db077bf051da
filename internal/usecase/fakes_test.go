package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/security"
	"github.com/evans-manyala/enxero/internal/repository"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memStore backs every fake repository so transactional rollbacks can restore one snapshot.
type memStore struct {
	mu         sync.Mutex
	accounts   map[string]domain.Account
	roles      map[string]domain.Role
	companies  map[string]domain.Company
	sessions   map[string]domain.Session
	attempts   []domain.FailedLoginAttempt
	activities []domain.Activity

	failAccountCreate error
	failActivity      error
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  map[string]domain.Account{},
		roles:     map[string]domain.Role{"user": {ID: "role-user", Name: "user"}},
		companies: map[string]domain.Company{},
		sessions:  map[string]domain.Session{},
	}
}

func (m *memStore) actions() []domain.ActivityAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ActivityAction, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, a.Action)
	}
	return out
}

func (m *memStore) countAction(action domain.ActivityAction) int {
	n := 0
	for _, a := range m.actions() {
		if a == action {
			n++
		}
	}
	return n
}

func (m *memStore) account(t *testing.T, id string) domain.Account {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[id]
	if !ok {
		t.Fatalf("account %s not stored", id)
	}
	return account
}

func (m *memStore) sessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

type memAccounts struct{ *memStore }

func (r memAccounts) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAccountCreate != nil {
		return r.failAccountCreate
	}
	for _, existing := range r.accounts {
		if existing.Email == account.Email || existing.Username == account.Username {
			return repository.ErrConflict
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r memAccounts) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[id]; ok {
		copy := account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r memAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return a.Email == email })
}

func (r memAccounts) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	return r.find(func(a domain.Account) bool { return a.Username == username })
}

func (r memAccounts) find(match func(domain.Account) bool) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if match(account) {
			copy := account
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memAccounts) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(a *domain.Account) bool {
		a.LastLogin = &at
		return true
	})
}

func (r memAccounts) Lock(_ context.Context, id string, lockedAt time.Time, reason string) error {
	return r.update(id, func(a *domain.Account) bool {
		if a.Status != domain.AccountStatusActive {
			return false
		}
		a.Status = domain.AccountStatusLocked
		a.DeactivatedAt = &lockedAt
		a.DeactivationReason = &reason
		return true
	})
}

func (r memAccounts) UnlockIfExpired(_ context.Context, id string, cutoff time.Time) (bool, error) {
	changed := false
	err := r.update(id, func(a *domain.Account) bool {
		if a.Status != domain.AccountStatusLocked || a.DeactivatedAt == nil || a.DeactivatedAt.After(cutoff) {
			return false
		}
		a.Status = domain.AccountStatusActive
		a.DeactivatedAt = nil
		a.DeactivationReason = nil
		changed = true
		return true
	})
	return changed, err
}

func (r memAccounts) UpdatePassword(_ context.Context, id, hash string, history []domain.PasswordHistoryEntry, changedAt time.Time) error {
	return r.update(id, func(a *domain.Account) bool {
		a.PasswordHash = hash
		a.PasswordHistory = history
		a.LastPasswordChange = &changedAt
		return true
	})
}

func (r memAccounts) update(id string, fn func(*domain.Account) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if fn(&account) {
		r.accounts[id] = account
	}
	return nil
}

type memRoles struct{ *memStore }

func (r memRoles) GetByName(_ context.Context, name string) (*domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if role, ok := r.roles[name]; ok {
		return &role, nil
	}
	return nil, repository.ErrNotFound
}

type memCompanies struct{ *memStore }

func (r memCompanies) Create(_ context.Context, company domain.Company) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies[company.ID] = company
	return nil
}

type memTx struct{ *memStore }

func (m memTx) WithinTx(ctx context.Context, fn func(ctx context.Context, repos port.TxRepositories) error) error {
	m.mu.Lock()
	accounts := make(map[string]domain.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	companies := make(map[string]domain.Company, len(m.companies))
	for k, v := range m.companies {
		companies[k] = v
	}
	m.mu.Unlock()

	err := fn(ctx, port.TxRepositories{
		Accounts:  memAccounts{m.memStore},
		Companies: memCompanies{m.memStore},
	})
	if err != nil {
		m.mu.Lock()
		m.accounts = accounts
		m.companies = companies
		m.mu.Unlock()
	}
	return err
}

type memSessions struct{ *memStore }

func (r memSessions) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.TokenHash] = session
	return nil
}

func (r memSessions) ListActiveByAccount(_ context.Context, accountID string, now time.Time) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.AccountID == accountID && s.ExpiresAt.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memSessions) DeleteByTokenHash(_ context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.sessions, tokenHash)
	return &s, nil
}

func (r memSessions) DeleteByAccount(_ context.Context, accountID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, s := range r.sessions {
		if s.AccountID == accountID {
			delete(r.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (r memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for hash, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, hash)
			n++
		}
	}
	return n, nil
}

type memAttempts struct{ *memStore }

func (r memAttempts) Create(_ context.Context, attempt domain.FailedLoginAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r memAttempts) CountByAccountSince(_ context.Context, accountID string, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.attempts {
		if a.AccountID != nil && *a.AccountID == accountID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r memAttempts) DeleteOlderThan(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[:0]
	var n int64
	for _, a := range r.attempts {
		if a.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return n, nil
}

type memActivities struct{ *memStore }

func (r memActivities) Append(_ context.Context, activity domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failActivity != nil {
		return r.failActivity
	}
	r.activities = append(r.activities, activity)
	return nil
}

// fakeHasher keeps tests fast; argon2 itself is covered in the security package.
type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Verify(password, encoded string) (bool, error) {
	if !strings.HasPrefix(encoded, "hashed:") {
		return false, errors.New("unknown hash format")
	}
	return encoded == "hashed:"+password, nil
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemRevocations() *memRevocations {
	return &memRevocations{revoked: map[string]time.Time{}}
}

func (r *memRevocations) MarkAccountRevoked(_ context.Context, accountID string, at time.Time, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[accountID] = at.Truncate(time.Second)
	return nil
}

func (r *memRevocations) AccountRevokedAt(_ context.Context, accountID string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	at, ok := r.revoked[accountID]
	return at, ok, nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	logins   map[string]int
	refresh  map[string]int
	lockouts int
	swept    [2]int64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{logins: map[string]int{}, refresh: map[string]int{}}
}

func (m *recordingMetrics) ObserveLogin(outcome string) {
	m.mu.Lock()
	m.logins[outcome]++
	m.mu.Unlock()
}

func (m *recordingMetrics) ObserveRefresh(outcome string) {
	m.mu.Lock()
	m.refresh[outcome]++
	m.mu.Unlock()
}

func (m *recordingMetrics) IncLockout() {
	m.mu.Lock()
	m.lockouts++
	m.mu.Unlock()
}

func (m *recordingMetrics) ObserveSweep(sessions, attempts int64) {
	m.mu.Lock()
	m.swept[0] += sessions
	m.swept[1] += attempts
	m.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
	err    error
}

func (p *recordingPublisher) PublishSecurityEvent(_ context.Context, event domain.SecurityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

type harness struct {
	store       *memStore
	clock       *fakeClock
	issuer      *security.JWTIssuer
	revocations *memRevocations
	metrics     *recordingMetrics
	publisher   *recordingPublisher
	activity    *ActivityLogger
	lockout     *LockoutTracker
	sessions    *SessionService
	accounts    *AccountService
	auth        *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := newMemStore()
	clock := newFakeClock()
	revocations := newMemRevocations()
	metrics := newRecordingMetrics()
	publisher := &recordingPublisher{}

	issuer, err := security.NewJWTIssuer(security.JWTIssuerConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		Issuer:        "enxero",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}
	issuer.WithClock(clock.Now)

	policy := security.NewPasswordPolicy(security.PasswordPolicyConfig{MinLength: 8, MinCharClasses: 3})

	activity := NewActivityLogger(memActivities{store}, publisher, nil)
	activity.WithClock(clock.Now)

	lockout := NewLockoutTracker(memAccounts{store}, memAttempts{store}, activity, DefaultLockoutConfig(), nil).
		WithRevocationStore(revocations).
		WithMetrics(metrics)
	lockout.WithClock(clock.Now)

	sessions := NewSessionService(memSessions{store}, memAttempts{store}, activity, SessionConfig{
		TTL:              24 * time.Hour,
		AttemptRetention: 24 * time.Hour,
		RevocationTTL:    15 * time.Minute,
	}, nil).WithRevocationStore(revocations).WithMetrics(metrics)
	sessions.WithClock(clock.Now)

	accounts := NewAccountService(memAccounts{store}, fakeHasher{}, policy, activity, domain.MaxPasswordHistory, nil)
	accounts.WithClock(clock.Now)

	auth := NewAuthService(AuthDependencies{
		Accounts: memAccounts{store},
		Roles:    memRoles{store},
		Tx:       memTx{store},
		Hasher:   fakeHasher{},
		Policy:   policy,
		Issuer:   issuer,
		Lockout:  lockout,
		Sessions: sessions,
		Activity: activity,
	}, AuthConfig{DefaultRole: "user"}).WithRevocationStore(revocations).WithMetrics(metrics)
	auth.WithClock(clock.Now)

	return &harness{
		store:       store,
		clock:       clock,
		issuer:      issuer,
		revocations: revocations,
		metrics:     metrics,
		publisher:   publisher,
		activity:    activity,
		lockout:     lockout,
		sessions:    sessions,
		accounts:    accounts,
		auth:        auth,
	}
}

const alicePassword = "Str0ng!Passw0rd"

func (h *harness) registerAlice(t *testing.T) *AuthResult {
	t.Helper()
	result, err := h.auth.Register(context.Background(), RegisterInput{
		Email:     "alice@example.com",
		Username:  "alice",
		Password:  alicePassword,
		FirstName: "Alice",
		LastName:  "Liddell",
		Client:    ClientInfo{IP: "203.0.113.7", UserAgent: "test-agent"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return result
}

func requireKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
