// Package watch holds the domain types shared by the source adapters,
// the change detector, the state store and the notification dispatcher.
package watch

import "time"

// Source identifies the origin of an observation. Persisted ids are scoped
// by source, so colliding ids from different origins never merge.
type Source string

const (
	SourceCatalog        Source = "catalog"
	SourceVariantTracker Source = "variant-tracker"
)

// PriceUnknown is the sentinel rendered when a source did not expose a price.
const PriceUnknown = "Check Site"

// Item is a product-like entity observed on a catalog source.
type Item struct {
	ID     string
	Title  string
	Price  string
	Handle string
	Link   string
	Source Source
}

// BinaryState is the persisted snapshot of a tracked (product, variant)
// availability. Exactly one row exists per VariantKey; every cycle
// overwrites it.
type BinaryState struct {
	VariantKey    string
	ProductName   string
	VariantName   string
	InStock       bool
	LastCheckedAt time.Time
}

// Availability is the tri-state result of a variant page check.
// StructureNotFound means the expected option control was not located;
// that is layout drift, not an out-of-stock observation.
type Availability int

const (
	InStock Availability = iota
	OutOfStock
	StructureNotFound
)

func (a Availability) String() string {
	switch a {
	case InStock:
		return "in_stock"
	case OutOfStock:
		return "out_of_stock"
	case StructureNotFound:
		return "structure_not_found"
	default:
		return "unknown"
	}
}

// EventKind classifies a change event.
type EventKind int

const (
	KindNewItem EventKind = iota
	KindRestock
)

func (k EventKind) String() string {
	switch k {
	case KindNewItem:
		return "new_item"
	case KindRestock:
		return "restock"
	default:
		return "unknown"
	}
}

// ChangeEvent is the unit handed to the dispatcher. It is built fresh each
// cycle, never persisted, and consumed once.
type ChangeEvent struct {
	Kind  EventKind
	Title string
	Price string
	Link  string
}

// CycleReport aggregates one poll cycle for top-level logging.
type CycleReport struct {
	Started   time.Time
	Duration  time.Duration
	ItemsSeen int
	NewItems  int
	Restocks  int
	Errors    []string
}

func (r *CycleReport) AddError(context string, err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, context+": "+err.Error())
}
