package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

func TestRESTKnownIDs(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/v1/seen_items" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("source"); got != "eq.catalog" {
			t.Errorf("source filter = %q", got)
		}
		if r.Header.Get("apikey") == "" || r.Header.Get("Authorization") == "" {
			t.Error("missing auth headers")
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{{"id": "1"}, {"id": "2"}})
	}))
	defer srv.Close()

	st, err := Open(Config{Driver: "rest", URL: srv.URL, Key: "service-key"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	ids, err := st.KnownIDs(context.Background(), watch.SourceCatalog)
	if err != nil {
		t.Fatalf("KnownIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
	if _, ok := ids["1"]; !ok {
		t.Fatalf("missing id 1: %v", ids)
	}
}

func TestRESTUpsertItems(t *testing.T) {
	t.Parallel()
	var gotConflict, gotPrefer string
	var gotRows []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotConflict = r.URL.Query().Get("on_conflict")
		gotPrefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&gotRows)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	st, err := Open(Config{Driver: "rest", URL: srv.URL, Key: "service-key"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	err = st.UpsertItems(context.Background(), []watch.Item{
		{ID: "100", Title: "Red Belt", Price: "29.99", Source: watch.SourceCatalog},
	})
	if err != nil {
		t.Fatalf("UpsertItems: %v", err)
	}
	if gotConflict != "source,id" {
		t.Fatalf("on_conflict = %q", gotConflict)
	}
	if gotPrefer != "resolution=merge-duplicates,return=minimal" {
		t.Fatalf("Prefer = %q", gotPrefer)
	}
	if len(gotRows) != 1 || gotRows[0]["id"] != "100" || gotRows[0]["source"] != "catalog" {
		t.Fatalf("unexpected rows: %v", gotRows)
	}
}

func TestRESTUpsertEmptyNoop(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty upsert")
	}))
	defer srv.Close()

	st, err := Open(Config{Driver: "rest", URL: srv.URL, Key: "k"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	if err := st.UpsertItems(context.Background(), nil); err != nil {
		t.Fatalf("empty upsert: %v", err)
	}
}

func TestRESTUnavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	st, err := Open(Config{Driver: "rest", URL: srv.URL, Key: "k"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if _, err := st.KnownIDs(context.Background(), watch.SourceCatalog); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
