package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"

	"github.com/evans-manyala/enxero/internal/core/domain"
)

// ErrSecretMissing is returned when an issuer is built without both signing secrets.
var ErrSecretMissing = errors.New("jwt: access and refresh secrets are required")

// ErrSecretsShared is returned when the access and refresh secrets are identical.
var ErrSecretsShared = errors.New("jwt: access and refresh secrets must differ")

// ErrTokenInvalid wraps every verification failure.
var ErrTokenInvalid = errors.New("jwt: invalid token")

// TokenClaims are the claims carried by both token kinds. Access tokens also carry the role.
type TokenClaims struct {
	UserID string           `json:"uid"`
	RoleID string           `json:"rid,omitempty"`
	Kind   domain.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// JWTIssuerConfig configures HMAC token signing.
type JWTIssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// JWTIssuer implements port.TokenIssuer with HS256 and a separate secret per token kind.
type JWTIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// NewJWTIssuer validates the secrets and returns an issuer.
func NewJWTIssuer(cfg JWTIssuerConfig) (*JWTIssuer, error) {
	access := strings.TrimSpace(cfg.AccessSecret)
	refresh := strings.TrimSpace(cfg.RefreshSecret)
	if access == "" || refresh == "" {
		return nil, ErrSecretMissing
	}
	if access == refresh {
		return nil, ErrSecretsShared
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTokenTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTokenTTL
	}

	return &JWTIssuer{
		accessSecret:  []byte(access),
		refreshSecret: []byte(refresh),
		issuer:        strings.TrimSpace(cfg.Issuer),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock sets the time source used when validating exp and nbf.
func (j *JWTIssuer) WithClock(clock func() time.Time) {
	if clock != nil {
		j.now = clock
	}
}

// Issue signs a fresh access/refresh pair for account.
func (j *JWTIssuer) Issue(account domain.Account, now time.Time) (domain.TokenPair, error) {
	if strings.TrimSpace(account.ID) == "" {
		return domain.TokenPair{}, fmt.Errorf("jwt: account id is required")
	}
	now = now.UTC()

	accessExp := now.Add(j.accessTTL)
	access, err := j.sign(TokenClaims{
		UserID:           account.ID,
		RoleID:           account.RoleID,
		Kind:             domain.TokenKindAccess,
		RegisteredClaims: j.registered(account.ID, now, accessExp),
	}, j.accessSecret)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshExp := now.Add(j.refreshTTL)
	refresh, err := j.sign(TokenClaims{
		UserID:           account.ID,
		Kind:             domain.TokenKindRefresh,
		RegisteredClaims: j.registered(account.ID, now, refreshExp),
	}, j.refreshSecret)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Verify checks signature, expiry and kind. Any failure is reported as ErrTokenInvalid.
func (j *JWTIssuer) Verify(token string, kind domain.TokenKind) (*domain.TokenPayload, error) {
	var secret []byte
	switch kind {
	case domain.TokenKindAccess:
		secret = j.accessSecret
	case domain.TokenKindRefresh:
		secret = j.refreshSecret
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrTokenInvalid, kind)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}

	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrTokenInvalid, kind)
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, fmt.Errorf("%w: missing account id", ErrTokenInvalid)
	}

	payload := &domain.TokenPayload{
		AccountID: claims.UserID,
		RoleID:    claims.RoleID,
		Kind:      claims.Kind,
		JTI:       claims.ID,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload, nil
}

func (j *JWTIssuer) registered(subject string, now, exp time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    j.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
}

func (j *JWTIssuer) sign(claims TokenClaims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
