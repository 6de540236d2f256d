package session

import "errors"

var (
	// ErrPermissionDenied ends the map features of a session; the user can
	// correct it from the platform settings screen.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrFirstFixTimeout is reported by a position feed when no first fix
	// arrived within WatchOptions.Timeout.
	ErrFirstFixTimeout = errors.New("timed out waiting for first location fix")

	// ErrStaleFix is reported by a position feed for a cached fix older
	// than WatchOptions.MaxFixAge.
	ErrStaleFix = errors.New("cached location fix too old")

	ErrAlreadyStarted = errors.New("session already started")
	ErrClosed         = errors.New("session closed")
)
