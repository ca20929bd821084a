package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "tunewave"
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

// Claims is the identity payload embedded in every signed token.
// Wire shape: {id, username, role, iat, exp} plus registered claims.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager mints and verifies signed access and refresh tokens.
// Access and refresh tokens are signed with distinct secrets so a leaked
// access-signing secret cannot forge refresh tokens and vice versa.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// TokenOption configures TokenManager behavior.
type TokenOption func(*TokenManager) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) error {
		if ttl > 0 {
			m.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) error {
		if ttl > 0 {
			m.refreshTTL = ttl
		}
		return nil
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(m *TokenManager) error {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			m.issuer = issuer
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(m *TokenManager) error {
		if fn != nil {
			m.now = fn
		}
		return nil
	}
}

// NewTokenManager constructs a TokenManager. The two signing secrets must
// be non-empty and must differ.
func NewTokenManager(accessSecret, refreshSecret string, opts ...TokenOption) (*TokenManager, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh signing secrets must differ")
	}
	m := &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     defaultAccessTTL,
		refreshTTL:    defaultRefreshTTL,
		issuer:        defaultIssuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AccessTTL returns the configured access token lifetime.
func (m *TokenManager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (m *TokenManager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccess mints a short-lived access token for the account.
func (m *TokenManager) IssueAccess(account *Account) (string, time.Time, error) {
	return m.issue(account, m.accessSecret, m.accessTTL)
}

// IssueRefresh mints a long-lived refresh token for the account. The
// caller is responsible for persisting the returned string onto the
// account record.
func (m *TokenManager) IssueRefresh(account *Account) (string, time.Time, error) {
	return m.issue(account, m.refreshSecret, m.refreshTTL)
}

// VerifyAccess validates an access token and returns its claims. Pure
// function of (token, secret, clock); no side effects.
func (m *TokenManager) VerifyAccess(raw string) (*Claims, error) {
	return m.verify(raw, m.accessSecret)
}

// VerifyRefresh validates a refresh token's signature and expiry. The
// server-side mirror comparison is the Service's concern.
func (m *TokenManager) VerifyRefresh(raw string) (*Claims, error) {
	return m.verify(raw, m.refreshSecret)
}

func (m *TokenManager) issue(account *Account, secret []byte, ttl time.Duration) (string, time.Time, error) {
	if account == nil || strings.TrimSpace(account.ID) == "" {
		return "", time.Time{}, errors.New("auth: account id is required")
	}
	now := m.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		UserID:   account.ID,
		Username: account.Username,
		Role:     account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (m *TokenManager) verify(raw string, secret []byte) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
