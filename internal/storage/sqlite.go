package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) KnownIDs(ctx context.Context, source watch.Source) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM seen_items WHERE source = ?`, string(source))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (s *sqliteStore) UpsertItems(ctx context.Context, items []watch.Item) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO seen_items(source, id, title, price) VALUES(?,?,?,?)
		 ON CONFLICT(source, id) DO UPDATE SET title=excluded.title, price=excluded.price`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range items {
		if _, err := stmt.ExecContext(ctx, string(it.Source), it.ID, it.Title, it.Price); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) VariantState(ctx context.Context, variantKey string) (watch.BinaryState, bool, error) {
	var (
		st      watch.BinaryState
		inStock int
		checked string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT variant_id, product_name, variant_name, in_stock, last_checked
		 FROM variant_tracker WHERE variant_id = ?`, variantKey).
		Scan(&st.VariantKey, &st.ProductName, &st.VariantName, &inStock, &checked)
	if errors.Is(err, sql.ErrNoRows) {
		return watch.BinaryState{}, false, nil
	}
	if err != nil {
		return watch.BinaryState{}, false, err
	}
	st.InStock = inStock != 0
	if checked != "" {
		if t, perr := time.Parse(time.RFC3339Nano, checked); perr == nil {
			st.LastCheckedAt = t
		}
	}
	return st, true, nil
}

func (s *sqliteStore) UpsertVariantState(ctx context.Context, st watch.BinaryState) error {
	inStock := 0
	if st.InStock {
		inStock = 1
	}
	if st.LastCheckedAt.IsZero() {
		st.LastCheckedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO variant_tracker(variant_id, product_name, variant_name, in_stock, last_checked)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(variant_id) DO UPDATE SET
		   product_name=excluded.product_name,
		   variant_name=excluded.variant_name,
		   in_stock=excluded.in_stock,
		   last_checked=excluded.last_checked`,
		st.VariantKey, st.ProductName, st.VariantName, inStock,
		st.LastCheckedAt.Format(time.RFC3339Nano),
	)
	return err
}
