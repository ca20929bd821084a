package auth

import (
	"context"
	"time"
)

// AccountStore describes persistence operations required by the auth
// subsystem. Implementations must map "no row" conditions to ErrNotFound
// and unique-constraint violations to ErrAlreadyExists.
type AccountStore interface {
	Create(ctx context.Context, account *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)

	UpdateRole(ctx context.Context, id, role string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetRefreshToken persists the newly minted refresh token and the
	// login timestamp in a single atomic update. Overwriting the previous
	// value is the revocation mechanism; concurrent logins race to last
	// write wins.
	SetRefreshToken(ctx context.Context, id, token string, loginAt time.Time) error

	// ReplaceRefreshToken swaps the stored refresh token without touching
	// the login timestamp (rotation-on-use path).
	ReplaceRefreshToken(ctx context.Context, id, token string) error

	ClearRefreshToken(ctx context.Context, id string) error
}
