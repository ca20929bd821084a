package auth

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown login name and a wrong
	// password. The two are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrInvalidToken indicates a token that failed signature or shape
	// validation, or a refresh token that does not match the stored value.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrTokenExpired indicates a structurally valid token past its expiry.
	// Kept distinct from ErrInvalidToken so clients can decide between a
	// refresh attempt and a full re-login.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrPermissionDenied indicates a verified identity lacking the
	// required permission.
	ErrPermissionDenied = errors.New("auth: permission denied")

	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
)
