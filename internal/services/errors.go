package services

import "errors"

var (
	// ErrNotAuthenticated means the operation needs a session that does not
	// exist. Callers should treat it as "redirect to login".
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials is returned for any failed login. It is kept
	// deliberately opaque: the message never reveals whether the email or
	// the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrNoRefreshToken means a refresh was requested with no stored
	// refresh token.
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrSessionExpired means a refresh was rejected and the session has
	// been torn down; the caller should send the user back to login.
	ErrSessionExpired = errors.New("session expired")

	// ErrProfileUnavailable means the server is unreachable and no cached
	// profile exists to fall back to.
	ErrProfileUnavailable = errors.New("profile unavailable")

	// ErrAddressesUnavailable means the server is unreachable and no cached
	// address collection exists to fall back to.
	ErrAddressesUnavailable = errors.New("addresses unavailable")

	// ErrAddressNotFound means the addressed record does not exist
	// server-side.
	ErrAddressNotFound = errors.New("address not found")
)
