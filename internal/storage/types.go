package storage

import (
	"errors"
	"time"
)

// ErrStoreUnavailable wraps transport-level failures of the rest driver.
// Callers treat a failed known-id load as an empty set (degraded, logged)
// rather than aborting the cycle; duplicate notifications are the accepted
// cost of a store outage.
var ErrStoreUnavailable = errors.New("store unavailable")

// Config configures the store.
//
// Driver values:
//   - "rest": PostgREST-style HTTP store (URL + Key required)
//   - "sqlite": SQLite database file (Path required)
type Config struct {
	Driver string

	// sqlite
	Path        string
	BusyTimeout time.Duration // 0 means default

	// rest
	URL     string
	Key     string
	Timeout time.Duration // HTTP timeout; 0 means default
}
