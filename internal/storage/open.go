package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// Store is the persistence API used by the orchestrator.
//
// Every call is atomic with respect to itself; no cross-call transaction is
// offered or needed. KnownIDs must reflect state as of the call (the caller
// snapshots it before upserting this cycle's items).
type Store interface {
	// KnownIDs returns all persisted item ids for the given source scope.
	KnownIDs(ctx context.Context, source watch.Source) (map[string]struct{}, error)

	// UpsertItems inserts or updates items keyed by (source, id).
	// It is idempotent and a no-op on empty input.
	UpsertItems(ctx context.Context, items []watch.Item) error

	// VariantState loads the snapshot for a variant key.
	// ok is false when no snapshot exists yet.
	VariantState(ctx context.Context, variantKey string) (st watch.BinaryState, ok bool, err error)

	// UpsertVariantState unconditionally overwrites the snapshot.
	UpsertVariantState(ctx context.Context, st watch.BinaryState) error

	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "rest":
		return openREST(cfg, log)
	default:
		return nil, errors.New("unknown store driver: " + cfg.Driver)
	}
}
