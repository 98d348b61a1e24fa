package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// restStore talks to a PostgREST-compatible endpoint (the hosted store the
// monitor originally ran against). Each request is one atomic upsert or
// select; the service key authorizes writes.
type restStore struct {
	base string
	key  string
	http *http.Client
	log  logx.Logger
}

const defaultRESTTimeout = 10 * time.Second

func openREST(cfg Config, log logx.Logger) (Store, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("rest store url is required")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("rest store key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRESTTimeout
	}
	return &restStore{
		base: base + "/rest/v1",
		key:  cfg.Key,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}, nil
}

func (s *restStore) Close() error { return nil }

type seenItemRow struct {
	Source string `json:"source"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	Price  string `json:"price"`
}

type variantRow struct {
	VariantID   string `json:"variant_id"`
	ProductName string `json:"product_name"`
	VariantName string `json:"variant_name"`
	InStock     bool   `json:"in_stock"`
	LastChecked string `json:"last_checked"`
}

func (s *restStore) KnownIDs(ctx context.Context, source watch.Source) (map[string]struct{}, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("source", "eq."+string(source))

	var rows []struct {
		ID string `json:"id"`
	}
	if err := s.get(ctx, "seen_items", q, &rows); err != nil {
		return nil, err
	}
	ids := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		ids[r.ID] = struct{}{}
	}
	return ids, nil
}

func (s *restStore) UpsertItems(ctx context.Context, items []watch.Item) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]seenItemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, seenItemRow{
			Source: string(it.Source),
			ID:     it.ID,
			Title:  it.Title,
			Price:  it.Price,
		})
	}
	return s.upsert(ctx, "seen_items", "source,id", rows)
}

func (s *restStore) VariantState(ctx context.Context, variantKey string) (watch.BinaryState, bool, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("variant_id", "eq."+variantKey)

	var rows []variantRow
	if err := s.get(ctx, "variant_tracker", q, &rows); err != nil {
		return watch.BinaryState{}, false, err
	}
	if len(rows) == 0 {
		return watch.BinaryState{}, false, nil
	}
	r := rows[0]
	st := watch.BinaryState{
		VariantKey:  r.VariantID,
		ProductName: r.ProductName,
		VariantName: r.VariantName,
		InStock:     r.InStock,
	}
	if r.LastChecked != "" {
		if t, err := time.Parse(time.RFC3339Nano, r.LastChecked); err == nil {
			st.LastCheckedAt = t
		}
	}
	return st, true, nil
}

func (s *restStore) UpsertVariantState(ctx context.Context, st watch.BinaryState) error {
	if st.LastCheckedAt.IsZero() {
		st.LastCheckedAt = time.Now()
	}
	row := variantRow{
		VariantID:   st.VariantKey,
		ProductName: st.ProductName,
		VariantName: st.VariantName,
		InStock:     st.InStock,
		LastChecked: st.LastCheckedAt.Format(time.RFC3339Nano),
	}
	return s.upsert(ctx, "variant_tracker", "variant_id", []variantRow{row})
}

func (s *restStore) get(ctx context.Context, table string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	s.auth(req)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: status %d", ErrStoreUnavailable, table, "select", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *restStore) upsert(ctx context.Context, table, conflict string, rows any) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	u := s.base + "/" + table + "?on_conflict=" + url.QueryEscape(conflict)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	s.auth(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s %s: status %d", ErrStoreUnavailable, table, "upsert", resp.StatusCode)
	}
	return nil
}

func (s *restStore) auth(req *http.Request) {
	req.Header.Set("apikey", s.key)
	req.Header.Set("Authorization", "Bearer "+s.key)
}
