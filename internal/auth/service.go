package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"
)

// timingDummyHash is a bcrypt hash compared against when the login name is
// unknown, so that path does roughly the same work as a wrong password.
const timingDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service composes credential verification, token issuance and refresh
// coordination over an AccountStore.
type Service struct {
	store         AccountStore
	tokens        *TokenManager
	rotateRefresh bool
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithRefreshRotation enables minting a replacement refresh token on every
// successful refresh exchange instead of only at login.
func WithRefreshRotation(enabled bool) ServiceOption {
	return func(s *Service) error {
		s.rotateRefresh = enabled
		return nil
	}
}

// NewService constructs a Service.
func NewService(store AccountStore, tokens *TokenManager, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: account store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token manager is required")
	}
	svc := &Service{store: store, tokens: tokens}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Tokens exposes the underlying token manager (TTLs for cookie max-age).
func (s *Service) Tokens() *TokenManager { return s.tokens }

// TokenPair carries freshly minted credentials. RefreshToken is empty on
// refresh exchanges unless rotation is enabled.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Login verifies the submitted credentials and, on success, mints an
// access/refresh pair, persists the refresh token onto the account record
// (revoking any prior one) and stamps the login time. An unknown login
// name and a wrong password both fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (TokenPair, *Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return TokenPair{}, nil, ErrInvalidCredentials
	}
	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = VerifyPassword(timingDummyHash, password)
			return TokenPair{}, nil, ErrInvalidCredentials
		}
		return TokenPair{}, nil, err
	}
	if err := VerifyPassword(account.PasswordHash, password); err != nil {
		return TokenPair{}, nil, ErrInvalidCredentials
	}

	access, accessExp, err := s.tokens.IssueAccess(account)
	if err != nil {
		return TokenPair{}, nil, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(account)
	if err != nil {
		return TokenPair{}, nil, err
	}

	loginAt := s.tokens.now().UTC()
	if err := s.store.SetRefreshToken(ctx, account.ID, refresh, loginAt); err != nil {
		return TokenPair{}, nil, err
	}
	account.RefreshToken = refresh
	account.LastLoginAt = &loginAt

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, account, nil
}

// Refresh exchanges a valid, server-recognized refresh token for a new
// access token. The presented token must verify against the refresh
// secret, must not be expired, and must byte-for-byte equal the value
// currently stored on the account — the last condition covers both "never
// issued" and "superseded by a later login". Failures are terminal for the
// request; the client re-authenticates from credentials.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, *Account, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, nil, err
	}
	account, err := s.store.Find(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, nil, ErrInvalidToken
		}
		return TokenPair{}, nil, err
	}
	if account.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(account.RefreshToken), []byte(refreshToken)) != 1 {
		return TokenPair{}, nil, ErrInvalidToken
	}

	access, accessExp, err := s.tokens.IssueAccess(account)
	if err != nil {
		return TokenPair{}, nil, err
	}
	pair := TokenPair{AccessToken: access, AccessExpiresAt: accessExp}

	if s.rotateRefresh {
		rotated, rotatedExp, err := s.tokens.IssueRefresh(account)
		if err != nil {
			return TokenPair{}, nil, err
		}
		if err := s.store.ReplaceRefreshToken(ctx, account.ID, rotated); err != nil {
			return TokenPair{}, nil, err
		}
		account.RefreshToken = rotated
		pair.RefreshToken = rotated
		pair.RefreshExpiresAt = rotatedExp
	}
	return pair, account, nil
}

// Authenticate validates an access token and returns its claims. It is
// re-run independently for every request; nothing is cached across
// requests beyond what the token itself encodes.
func (s *Service) Authenticate(raw string) (*Claims, error) {
	return s.tokens.VerifyAccess(raw)
}

// Logout discards the stored refresh token so no further refresh
// exchanges succeed until the next login.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	return s.store.ClearRefreshToken(ctx, accountID)
}

// CreateAccount registers a new account with a hashed secret.
func (s *Service) CreateAccount(ctx context.Context, username, displayName, password, role string) (*Account, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	role = normalizeRole(role)
	if !KnownRole(role) {
		return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	account := &Account{
		Username:     username,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// ListAccounts returns all accounts.
func (s *Service) ListAccounts(ctx context.Context) ([]*Account, error) {
	return s.store.List(ctx)
}

// Account loads a single account by id.
func (s *Service) Account(ctx context.Context, id string) (*Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, id)
}

// UpdateRole changes an account's role (administrative action only).
func (s *Service) UpdateRole(ctx context.Context, id, role string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	role = normalizeRole(role)
	if !KnownRole(role) {
		return fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, role)
	}
	return s.store.UpdateRole(ctx, id, role)
}

// UpdatePassword replaces an account's secret and revokes the outstanding
// refresh token so sessions minted under the old secret cannot renew.
func (s *Service) UpdatePassword(ctx context.Context, id, password string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	return s.store.ClearRefreshToken(ctx, id)
}
