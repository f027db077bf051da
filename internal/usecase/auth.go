package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/evans-manyala/enxero/internal/core/domain"
	"github.com/evans-manyala/enxero/internal/core/port"
	"github.com/evans-manyala/enxero/internal/infra/logger"
	"github.com/evans-manyala/enxero/internal/repository"
)

var tracer = otel.Tracer("github.com/evans-manyala/enxero/internal/usecase")

const (
	outcomeSuccess           = "success"
	outcomeInvalidCredential = "invalid_credential"
	outcomeInvalidToken      = "invalid_token"
	outcomeLocked            = "locked"
	outcomeInactive          = "inactive"
	outcomeError             = "error"
)

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Client    ClientInfo
}

// LoginInput carries credentials presented at login.
type LoginInput struct {
	Email    string
	Password string
	Client   ClientInfo
}

// UserSummary is the public view of an authenticated account.
type UserSummary struct {
	ID        string
	Email     string
	Username  string
	FirstName string
	LastName  string
	Role      string
	CompanyID string
}

// AuthResult is returned by register, login and refresh.
type AuthResult struct {
	Tokens domain.TokenPair
	User   UserSummary
}

// AuthConfig holds orchestration settings.
type AuthConfig struct {
	DefaultRole     string
	HistorySize     int
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AuthService orchestrates registration, login, refresh and logout.
type AuthService struct {
	accounts    port.AccountRepository
	roles       port.RoleRepository
	tx          port.TxManager
	hasher      port.PasswordHasher
	policy      port.PasswordPolicyValidator
	issuer      port.TokenIssuer
	lockout     *LockoutTracker
	sessions    *SessionService
	activity    *ActivityLogger
	revocations port.AccessRevocationStore
	metrics     port.AuthMetrics
	logger      *zap.Logger
	cfg         AuthConfig
	now         func() time.Time
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Accounts port.AccountRepository
	Roles    port.RoleRepository
	Tx       port.TxManager
	Hasher   port.PasswordHasher
	Policy   port.PasswordPolicyValidator
	Issuer   port.TokenIssuer
	Lockout  *LockoutTracker
	Sessions *SessionService
	Activity *ActivityLogger
	Logger   *zap.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(deps AuthDependencies, cfg AuthConfig) *AuthService {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.DefaultRole) == "" {
		cfg.DefaultRole = "user"
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = domain.MaxPasswordHistory
	}
	return &AuthService{
		accounts: deps.Accounts,
		roles:    deps.Roles,
		tx:       deps.Tx,
		hasher:   deps.Hasher,
		policy:   deps.Policy,
		issuer:   deps.Issuer,
		lockout:  deps.Lockout,
		sessions: deps.Sessions,
		activity: deps.Activity,
		logger:   log,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithRevocationStore enables revoke-all checks on access tokens.
func (s *AuthService) WithRevocationStore(store port.AccessRevocationStore) *AuthService {
	s.revocations = store
	return s
}

// WithMetrics attaches login and refresh counters.
func (s *AuthService) WithMetrics(metrics port.AuthMetrics) *AuthService {
	s.metrics = metrics
	return s
}

// Register creates a company and account atomically, then signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (result *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	email := normalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || username == "" || in.Password == "" {
		return nil, newError(ErrValidation, "email, username and password are required", nil)
	}

	if err := s.ensureUnique(ctx, email, username); err != nil {
		return nil, err
	}

	if s.policy != nil {
		if err := s.policy.Validate(in.Password, email, username, in.FirstName, in.LastName); err != nil {
			return nil, newError(ErrValidation, err.Error(), err)
		}
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role, err := s.roles.GetByName(ctx, s.cfg.DefaultRole)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrConfig, "default role is not configured", fmt.Errorf("role %q: %w", s.cfg.DefaultRole, err))
		}
		return nil, fmt.Errorf("resolve default role: %w", err)
	}

	now := s.now()
	company := domain.Company{
		ID:        uuid.NewString(),
		Name:      companyName(in.FirstName, in.LastName, username),
		CreatedAt: now,
	}
	account := domain.Account{
		ID:                 uuid.NewString(),
		Email:              email,
		Username:           username,
		PasswordHash:       hash,
		PasswordHistory:    []domain.PasswordHistoryEntry{{Hash: hash, ChangedAt: now}},
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		Status:             domain.AccountStatusActive,
		LastPasswordChange: &now,
		RoleID:             role.ID,
		RoleName:           role.Name,
		CompanyID:          company.ID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos port.TxRepositories) error {
		if err := repos.Companies.Create(ctx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		if err := repos.Accounts.Create(ctx, account); err != nil {
			return fmt.Errorf("create account: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, newError(ErrConflict, "email or username already registered", err)
		}
		return nil, fmt.Errorf("register account: %w", err)
	}

	result, err = s.signIn(ctx, account, in.Client, now)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"companyId": company.ID, "role": role.Name}
	if err := s.activity.Record(ctx, account.ID, domain.ActionUserRegistered, metadata, in.Client); err != nil {
		return nil, err
	}

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("email", logger.MaskEmail(email)),
	)
	return result, nil
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (result *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	outcome := outcomeError
	defer func() { s.observeLogin(outcome) }()

	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		outcome = outcomeInvalidCredential
		return nil, newError(ErrValidation, "email and password are required", nil)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup account: %w", err)
		}
		if _, err := s.lockout.recordFailure(ctx, email, nil, in.Client); err != nil {
			return nil, err
		}
		outcome = outcomeInvalidCredential
		s.logger.Info("login rejected: unknown email", zap.String("email", logger.MaskEmail(email)))
		return nil, newError(ErrInvalidCredential, "invalid email or password", nil)
	}

	locked, err := s.lockout.IsLocked(ctx, *account)
	if err != nil {
		return nil, err
	}
	if locked {
		outcome = outcomeLocked
		return nil, s.lockedError(*account)
	}

	if account.IsInactive() {
		outcome = outcomeInactive
		return nil, newError(ErrAccountInactive, "account is not active", nil)
	}

	ok, err := s.hasher.Verify(in.Password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		if _, err := s.lockout.recordFailure(ctx, email, account, in.Client); err != nil {
			return nil, err
		}
		outcome = outcomeInvalidCredential
		s.logger.Info("login rejected: wrong password",
			zap.String("account_id", account.ID),
			zap.String("email", logger.MaskEmail(email)),
		)
		return nil, newError(ErrInvalidCredential, "invalid email or password", nil)
	}

	now := s.now()
	if err := s.accounts.UpdateLastLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	account.LastLogin = &now
	account.Status = domain.AccountStatusActive

	result, err = s.signIn(ctx, *account, in.Client, now)
	if err != nil {
		return nil, err
	}

	if err := s.activity.Record(ctx, account.ID, domain.ActionUserLoggedIn, nil, in.Client); err != nil {
		return nil, err
	}

	outcome = outcomeSuccess
	return result, nil
}

// Refresh rotates a refresh token. Each refresh token can be redeemed once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (result *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "auth.Refresh")
	defer func() { endSpan(span, err) }()

	outcome := outcomeError
	defer func() { s.observeRefresh(outcome) }()

	invalid := func(cause error) error {
		outcome = outcomeInvalidToken
		return newError(ErrInvalidToken, "invalid refresh token", cause)
	}

	payload, err := s.issuer.Verify(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return nil, invalid(err)
	}

	account, err := s.accounts.GetByID(ctx, payload.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalid(err)
		}
		return nil, fmt.Errorf("load account: %w", err)
	}

	locked, err := s.lockout.IsLocked(ctx, *account)
	if err != nil {
		return nil, err
	}
	if locked {
		outcome = outcomeLocked
		return nil, s.lockedError(*account)
	}
	if account.IsInactive() {
		outcome = outcomeInactive
		return nil, newError(ErrAccountInactive, "account is not active", nil)
	}

	session, err := s.sessions.Invalidate(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalid(nil)
		}
		return nil, err
	}
	now := s.now()
	if session.AccountID != account.ID || !session.IsActive(now) {
		return nil, invalid(nil)
	}

	account.Status = domain.AccountStatusActive
	result, err = s.signIn(ctx, *account, client, now)
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"previousSessionId": session.ID}
	if err := s.activity.Record(ctx, account.ID, domain.ActionTokenRefreshed, metadata, client); err != nil {
		return nil, err
	}

	outcome = outcomeSuccess
	return result, nil
}

// Logout drops the session backing refreshToken. It never fails.
func (s *AuthService) Logout(ctx context.Context, refreshToken string, client ClientInfo) {
	ctx, span := tracer.Start(ctx, "auth.Logout")
	defer span.End()

	if strings.TrimSpace(refreshToken) == "" {
		return
	}

	session, err := s.sessions.Invalidate(ctx, refreshToken)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("logout failed", zap.Error(err))
		}
		return
	}

	if err := s.activity.Record(ctx, session.AccountID, domain.ActionUserLoggedOut, nil, client); err != nil {
		s.logger.Warn("record logout activity failed", zap.String("account_id", session.AccountID), zap.Error(err))
	}
}

// AuthenticateAccess verifies an access token and rejects tokens issued before
// the account's last revoke-all.
func (s *AuthService) AuthenticateAccess(ctx context.Context, accessToken string) (*domain.TokenPayload, error) {
	payload, err := s.issuer.Verify(accessToken, domain.TokenKindAccess)
	if err != nil {
		return nil, newError(ErrInvalidToken, "invalid access token", err)
	}
	if s.revocations == nil {
		return payload, nil
	}

	revokedAt, ok, err := s.revocations.AccountRevokedAt(ctx, payload.AccountID)
	if err != nil {
		s.logger.Warn("revocation lookup failed", zap.String("account_id", payload.AccountID), zap.Error(err))
		return payload, nil
	}
	if ok && payload.IssuedAt.Before(revokedAt) {
		return nil, newError(ErrInvalidToken, "access token revoked", nil)
	}
	return payload, nil
}

func (s *AuthService) signIn(ctx context.Context, account domain.Account, client ClientInfo, now time.Time) (*AuthResult, error) {
	tokens, err := s.issuer.Issue(account, now)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	if _, err := s.sessions.Create(ctx, account.ID, tokens.RefreshToken, client); err != nil {
		return nil, err
	}
	return &AuthResult{Tokens: tokens, User: summarize(account)}, nil
}

func (s *AuthService) ensureUnique(ctx context.Context, email, username string) error {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return newError(ErrConflict, "email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return newError(ErrConflict, "username already taken", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check username: %w", err)
	}
	return nil
}

func (s *AuthService) lockedError(account domain.Account) error {
	msg := "account is temporarily locked"
	if until, ok := s.lockout.LockedUntil(account); ok {
		msg = fmt.Sprintf("account is locked until %s", until.UTC().Format(time.RFC3339))
	}
	return newError(ErrAccountLocked, msg, nil)
}

func (s *AuthService) observeLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(outcome)
	}
}

func (s *AuthService) observeRefresh(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveRefresh(outcome)
	}
}

func summarize(account domain.Account) UserSummary {
	return UserSummary{
		ID:        account.ID,
		Email:     account.Email,
		Username:  account.Username,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.RoleName,
		CompanyID: account.CompanyID,
	}
}

func companyName(first, last, username string) string {
	name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	if name == "" {
		name = username
	}
	return name
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
