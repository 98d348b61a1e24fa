// Package detect decides what counts as a change. It owns the two
// detection semantics: new-entity detection for catalog items and
// edge-triggered detection for variant availability.
package detect

import (
	"strings"

	"github.com/wtshilac/random-web-scraper/internal/watch"
)

// FilterByKeyword keeps items whose lowercased title contains the keyword.
// An empty keyword keeps everything.
func FilterByKeyword(items []watch.Item, keyword string) []watch.Item {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return items
	}
	out := make([]watch.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), kw) {
			out = append(out, it)
		}
	}
	return out
}

// NewItems returns a NewItem event for every item whose id is absent from
// known. known must be the store snapshot taken BEFORE this cycle's
// upserts; calling it after the upsert would mark everything as seen.
//
// All items are still upserted by the caller regardless of new/known
// status, so price drift on known items is captured without alerting.
func NewItems(items []watch.Item, known map[string]struct{}) []watch.ChangeEvent {
	var events []watch.ChangeEvent
	for _, it := range items {
		if _, seen := known[it.ID]; seen {
			continue
		}
		price := it.Price
		if price == "" {
			price = watch.PriceUnknown
		}
		events = append(events, watch.ChangeEvent{
			Kind:  watch.KindNewItem,
			Title: it.Title,
			Price: price,
			Link:  it.Link,
		})
	}
	return events
}

// RestockEdge reports whether a restock event fires for a fresh
// observation. This is edge-triggered on the false-to-true transition: steady
// in-stock state never fires again until the variant has been observed out
// of stock.
//
// StructureNotFound never fires and is never treated as an edge; the
// caller records it as not-in-stock so a later real observation can fire.
//
// With no persisted baseline (prevFound == false), alertOnFirstSight
// decides whether a first-ever in-stock observation alerts.
func RestockEdge(prev watch.BinaryState, prevFound bool, observed watch.Availability, alertOnFirstSight bool) bool {
	if observed != watch.InStock {
		return false
	}
	if !prevFound {
		return alertOnFirstSight
	}
	return !prev.InStock
}

// RestockEvent renders the event for a firing edge.
func RestockEvent(productName, variantName, link string) watch.ChangeEvent {
	title := productName
	if variantName != "" {
		title += " - " + variantName
	}
	return watch.ChangeEvent{
		Kind:  watch.KindRestock,
		Title: title,
		Price: watch.PriceUnknown,
		Link:  link,
	}
}
