package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

const catalogBody = `{
  "products": [
    {
      "id": 100,
      "title": "Red Belt",
      "handle": "red-belt",
      "variants": [{"price": "29.99"}, {"price": "31.99"}]
    },
    {
      "id": 200,
      "title": "Blue Gi",
      "handle": "blue-gi",
      "variants": []
    }
  ]
}`

func TestFetchCatalog(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogBody))
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL+"/collections/all/products.json", 5*time.Second, logx.Nop())
	items, err := c.FetchCatalog(context.Background())
	if err != nil {
		t.Fatalf("FetchCatalog: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	first := items[0]
	if first.ID != "100" {
		t.Fatalf("ID = %q, want \"100\" (numeric ids must normalize to strings)", first.ID)
	}
	if first.Title != "Red Belt" || first.Price != "29.99" {
		t.Fatalf("unexpected item: %+v", first)
	}
	if first.Link != srv.URL+"/products/red-belt" {
		t.Fatalf("Link = %q", first.Link)
	}
	if first.Source != watch.SourceCatalog {
		t.Fatalf("Source = %q", first.Source)
	}

	// No variants: price falls back to the sentinel.
	if items[1].Price != watch.PriceUnknown {
		t.Fatalf("expected %q for missing variants, got %q", watch.PriceUnknown, items[1].Price)
	}
}

func TestFetchCatalogStatusError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, time.Second, logx.Nop())
	if _, err := c.FetchCatalog(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetchCatalogMalformedBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, time.Second, logx.Nop())
	if _, err := c.FetchCatalog(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestFetchCatalogTransportError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewCatalogClient(srv.URL, time.Second, logx.Nop())
	if _, err := c.FetchCatalog(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}
