package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

const defaultVariantTimeout = 10 * time.Second

// VariantChecker scrapes one product page for the availability of a single
// option. The page exposes mutually-exclusive option controls inside a
// fieldset; a "disabled" marker (class or attribute) on the matching
// control means the option is sold out.
//
// A page whose structure no longer matches does not fail the check: layout
// drift is expected, and is reported as StructureNotFound so the caller can
// tell it apart from a genuine out-of-stock observation.
type VariantChecker struct {
	pageURL string
	http    *http.Client
	log     logx.Logger
}

func NewVariantChecker(pageURL string, timeout time.Duration, log logx.Logger) *VariantChecker {
	if timeout <= 0 {
		timeout = defaultVariantTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &VariantChecker{
		pageURL: pageURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *VariantChecker) PageURL() string { return c.pageURL }

// CheckVariant fetches the page and reports the availability of the option
// whose visible text, value or accessible label contains variantLabel
// (case-insensitive). Only transport failures return an error.
func (c *VariantChecker) CheckVariant(ctx context.Context, variantLabel string) (watch.Availability, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return watch.StructureNotFound, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return watch.StructureNotFound, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return watch.StructureNotFound, fmt.Errorf("%w: variant page: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		// Unparseable HTML is drift, not an outage: the transport worked.
		c.log.Warn("variant page not parseable", logx.String("url", c.pageURL), logx.Err(err))
		return watch.StructureNotFound, nil
	}

	return matchOption(doc, variantLabel), nil
}

// matchOption scans fieldset option controls for one matching the label.
func matchOption(doc *goquery.Document, variantLabel string) watch.Availability {
	want := strings.ToLower(strings.TrimSpace(variantLabel))
	if want == "" {
		return watch.StructureNotFound
	}

	result := watch.StructureNotFound
	doc.Find("fieldset input[type=radio]").EachWithBreak(func(_ int, in *goquery.Selection) bool {
		if !optionMatches(in, want) {
			return true
		}
		if optionDisabled(in) {
			result = watch.OutOfStock
		} else {
			result = watch.InStock
		}
		return false
	})
	return result
}

func optionMatches(in *goquery.Selection, want string) bool {
	if v, ok := in.Attr("value"); ok && strings.Contains(strings.ToLower(v), want) {
		return true
	}
	if v, ok := in.Attr("aria-label"); ok && strings.Contains(strings.ToLower(v), want) {
		return true
	}
	// Visible text lives on the associated label.
	if id, ok := in.Attr("id"); ok && id != "" {
		label := in.Closest("fieldset").Find(`label[for="` + id + `"]`)
		if strings.Contains(strings.ToLower(label.Text()), want) {
			return true
		}
	}
	return false
}

func optionDisabled(in *goquery.Selection) bool {
	if _, ok := in.Attr("disabled"); ok {
		return true
	}
	if in.HasClass("disabled") {
		return true
	}
	if id, ok := in.Attr("id"); ok && id != "" {
		if in.Closest("fieldset").Find(`label[for="` + id + `"]`).HasClass("disabled") {
			return true
		}
	}
	return false
}
