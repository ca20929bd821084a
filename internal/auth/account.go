package auth

import "time"

// Roles form a closed enumeration fixed at deploy time.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Account represents a person who can authenticate against the admin API.
type Account struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	// PasswordHash holds the bcrypt hash of the account secret; the
	// plaintext is never stored.
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	// RefreshToken mirrors the currently valid refresh token. Empty means
	// no refresh token is outstanding. Issuing a new one overwrites this
	// value and thereby revokes every previously issued refresh token.
	RefreshToken string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// KnownRole reports whether role is part of the closed enumeration.
func KnownRole(role string) bool {
	switch role {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}
