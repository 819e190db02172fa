package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist or has expired.
	ErrNotFound = errors.New("repository: not found")
	// ErrUnavailable indicates the backing store could not be reached in time.
	// Callers must not conflate it with ErrNotFound: "could not determine" is
	// never "no session".
	ErrUnavailable = errors.New("repository: store unavailable")
)
