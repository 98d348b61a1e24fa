// Package source contains the adapters that fetch external product data
// and normalize it into the shared watch types.
package source

import "errors"

// ErrSourceUnavailable wraps transport and parse failures of an adapter.
// The orchestrator treats the failing source as empty for the cycle and
// continues; the other sources are unaffected.
var ErrSourceUnavailable = errors.New("source unavailable")
