package gateway

import "errors"

var (
	// ErrUnavailable means the backend could not be reached at all, as
	// opposed to an explicit rejection.
	ErrUnavailable = errors.New("server unavailable")

	// ErrUnauthorized means the backend refused the credentials or token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the addressed resource does not exist server-side.
	ErrNotFound = errors.New("not found")

	// ErrRejected means the backend explicitly refused the request for a
	// reason other than auth or missing resource; the wrapped message
	// carries the server detail.
	ErrRejected = errors.New("request rejected")
)
