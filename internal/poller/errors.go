package poller

import "errors"

// Sentinel errors for poller operations.
var (
	// ErrRefreshFailed wraps refresh errors classified as transient
	// (typically a network timeout).
	ErrRefreshFailed = errors.New("poller: refresh failed")

	// ErrNilRefresher is returned by New when no Refresher is supplied.
	ErrNilRefresher = errors.New("poller: refresher is required")
)
