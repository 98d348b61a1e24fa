package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

const defaultCatalogTimeout = 10 * time.Second

// CatalogClient fetches a Shopify-style products.json endpoint and
// normalizes every product into a watch.Item. It does not filter; keyword
// selection is the detector's job.
type CatalogClient struct {
	url  string
	http *http.Client
	log  logx.Logger
}

func NewCatalogClient(rawURL string, timeout time.Duration, log logx.Logger) *CatalogClient {
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CatalogClient{
		url:  rawURL,
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// catalogResponse mirrors the relevant slice of the products.json shape.
// Product ids arrive as JSON numbers; they are normalized to strings
// because the store keys on strings.
type catalogResponse struct {
	Products []struct {
		ID       json.Number `json:"id"`
		Title    string      `json:"title"`
		Handle   string      `json:"handle"`
		Variants []struct {
			Price string `json:"price"`
		} `json:"variants"`
	} `json:"products"`
}

func (c *CatalogClient) FetchCatalog(ctx context.Context) ([]watch.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: catalog fetch: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var body catalogResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: catalog parse: %v", ErrSourceUnavailable, err)
	}

	host := productHost(c.url)
	items := make([]watch.Item, 0, len(body.Products))
	for _, p := range body.Products {
		id := p.ID.String()
		if id == "" {
			continue
		}
		price := watch.PriceUnknown
		if len(p.Variants) > 0 && p.Variants[0].Price != "" {
			price = p.Variants[0].Price
		}
		items = append(items, watch.Item{
			ID:     id,
			Title:  p.Title,
			Price:  price,
			Handle: p.Handle,
			Link:   productLink(host, p.Handle),
			Source: watch.SourceCatalog,
		})
	}

	c.log.Debug("catalog fetched", logx.Int("products", len(items)))
	return items, nil
}

func productHost(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

// productLink builds the canonical product URL from the catalog handle.
func productLink(host, handle string) string {
	if host == "" || handle == "" {
		return host
	}
	return host + "/products/" + handle
}
