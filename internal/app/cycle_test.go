package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/wtshilac/random-web-scraper/internal/config"
	"github.com/wtshilac/random-web-scraper/internal/notify"
	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

type fakeStore struct {
	mu    sync.Mutex
	calls []string

	known    map[string]struct{}
	knownErr error

	items     []watch.Item
	upsertErr error

	states   map[string]watch.BinaryState
	stateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		known:  map[string]struct{}{},
		states: map[string]watch.BinaryState{},
	}
}

func (s *fakeStore) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *fakeStore) KnownIDs(_ context.Context, _ watch.Source) (map[string]struct{}, error) {
	s.record("KnownIDs")
	if s.knownErr != nil {
		return nil, s.knownErr
	}
	out := make(map[string]struct{}, len(s.known))
	for id := range s.known {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *fakeStore) UpsertItems(_ context.Context, items []watch.Item) error {
	s.record("UpsertItems")
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.items = append(s.items, items...)
	for _, it := range items {
		s.known[it.ID] = struct{}{}
	}
	return nil
}

func (s *fakeStore) VariantState(_ context.Context, key string) (watch.BinaryState, bool, error) {
	s.record("VariantState")
	if s.stateErr != nil {
		return watch.BinaryState{}, false, s.stateErr
	}
	st, ok := s.states[key]
	return st, ok, nil
}

func (s *fakeStore) UpsertVariantState(_ context.Context, st watch.BinaryState) error {
	s.record("UpsertVariantState")
	s.states[st.VariantKey] = st
	return nil
}

func (s *fakeStore) Close() error { return nil }

type fakeCatalog struct {
	items []watch.Item
	err   error
}

func (f *fakeCatalog) FetchCatalog(context.Context) ([]watch.Item, error) {
	return f.items, f.err
}

type fakeChecker struct {
	avail watch.Availability
	err   error
	url   string
}

func (f *fakeChecker) CheckVariant(context.Context, string) (watch.Availability, error) {
	return f.avail, f.err
}

func (f *fakeChecker) PageURL() string { return f.url }

type captureChannel struct {
	mu      sync.Mutex
	batches [][]watch.ChangeEvent
}

func (c *captureChannel) Name() string { return "capture" }

func (c *captureChannel) Send(_ context.Context, events []watch.ChangeEvent) error {
	c.mu.Lock()
	c.batches = append(c.batches, events)
	c.mu.Unlock()
	return nil
}

func (c *captureChannel) events() []watch.ChangeEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []watch.ChangeEvent
	for _, b := range c.batches {
		out = append(out, b...)
	}
	return out
}

func testApp(store *fakeStore, catalog catalogFetcher, legs []variantLeg, ch notify.Channel) *App {
	cfg := &config.Config{}
	cfg.Watch.Catalog.Keyword = "belt"
	return &App{
		cfg:        cfg,
		log:        logx.Nop(),
		store:      store,
		catalog:    catalog,
		variants:   legs,
		dispatcher: notify.NewDispatcher([]notify.Channel{ch}, 100, logx.Nop()),
	}
}

func TestCycleDetectsNewCatalogItem(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	catalog := &fakeCatalog{items: []watch.Item{
		{ID: "100", Title: "Red Belt", Price: "29.99", Handle: "red-belt",
			Link: "https://halfsumo.com/products/red-belt", Source: watch.SourceCatalog},
		{ID: "200", Title: "Rash Guard", Price: "45.00", Handle: "rash-guard",
			Link: "https://halfsumo.com/products/rash-guard", Source: watch.SourceCatalog},
	}}
	ch := &captureChannel{}
	a := testApp(store, catalog, nil, ch)

	report := a.RunCycle(context.Background())

	if report.NewItems != 1 || report.ItemsSeen != 1 {
		t.Fatalf("report = %+v, want 1 new of 1 seen", report)
	}
	events := ch.events()
	if len(events) != 1 {
		t.Fatalf("dispatched %d events, want 1", len(events))
	}
	e := events[0]
	if e.Kind != watch.KindNewItem || e.Title != "Red Belt" || e.Price != "29.99" {
		t.Fatalf("event = %+v", e)
	}
	if e.Link != "https://halfsumo.com/products/red-belt" {
		t.Fatalf("link = %q", e.Link)
	}
	if len(store.items) != 1 || store.items[0].ID != "100" {
		t.Fatalf("persisted items = %+v, want only the matched one", store.items)
	}
}

func TestCycleSnapshotsKnownIDsBeforeUpsert(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	catalog := &fakeCatalog{items: []watch.Item{
		{ID: "1", Title: "White Belt", Price: "19.99", Source: watch.SourceCatalog},
	}}
	ch := &captureChannel{}
	a := testApp(store, catalog, nil, ch)

	a.RunCycle(context.Background())

	if len(store.calls) < 2 || store.calls[0] != "KnownIDs" || store.calls[1] != "UpsertItems" {
		t.Fatalf("store call order = %v, want KnownIDs before UpsertItems", store.calls)
	}
	if len(ch.events()) != 1 {
		t.Fatal("item persisted this cycle must still be reported as new")
	}
}

func TestCycleKnownItemsStayQuiet(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.known["100"] = struct{}{}
	catalog := &fakeCatalog{items: []watch.Item{
		{ID: "100", Title: "Red Belt", Price: "29.99", Source: watch.SourceCatalog},
	}}
	ch := &captureChannel{}
	a := testApp(store, catalog, nil, ch)

	report := a.RunCycle(context.Background())
	if report.NewItems != 0 || len(ch.events()) != 0 {
		t.Fatalf("known item produced events: report=%+v events=%v", report, ch.events())
	}
	if len(store.items) != 1 {
		t.Fatal("known items must still be upserted for price drift")
	}
}

func TestCycleCatalogFailureDoesNotStopVariantLeg(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	catalog := &fakeCatalog{err: errors.New("connect: refused")}
	legs := []variantLeg{{
		checker: &fakeChecker{avail: watch.InStock, url: "https://shop.example/products/gi"},
		cfg:     config.VariantWatch{Key: "gi/a2", ProductName: "Gi", VariantLabel: "A2"},
	}}
	ch := &captureChannel{}
	a := testApp(store, catalog, legs, ch)

	report := a.RunCycle(context.Background())

	if len(report.Errors) != 1 {
		t.Fatalf("errors = %v, want the catalog failure recorded", report.Errors)
	}
	events := ch.events()
	if len(events) != 1 || events[0].Kind != watch.KindRestock {
		t.Fatalf("events = %+v, want the first-sight restock", events)
	}
	if events[0].Link != "https://shop.example/products/gi" {
		t.Fatalf("link = %q", events[0].Link)
	}
}

func TestCycleStoreFailureDegrades(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.knownErr = errors.New("store down")
	store.upsertErr = errors.New("store down")
	catalog := &fakeCatalog{items: []watch.Item{
		{ID: "100", Title: "Red Belt", Price: "29.99", Source: watch.SourceCatalog},
	}}
	ch := &captureChannel{}
	a := testApp(store, catalog, nil, ch)

	report := a.RunCycle(context.Background())

	if report.NewItems != 1 || len(ch.events()) != 1 {
		t.Fatal("unreachable store must not suppress the alert")
	}
	if len(report.Errors) == 0 {
		t.Fatal("upsert failure must be recorded")
	}
}

func TestCycleRestockEdge(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.states["gi/a2"] = watch.BinaryState{VariantKey: "gi/a2", InStock: false}
	legs := []variantLeg{{
		checker: &fakeChecker{avail: watch.InStock, url: "https://shop.example/products/gi"},
		cfg:     config.VariantWatch{Key: "gi/a2", ProductName: "Gi", VariantLabel: "A2"},
	}}
	ch := &captureChannel{}
	a := testApp(store, &fakeCatalog{}, legs, ch)

	report := a.RunCycle(context.Background())
	if report.Restocks != 1 || len(ch.events()) != 1 {
		t.Fatalf("report=%+v events=%v, want one restock", report, ch.events())
	}
	if st := store.states["gi/a2"]; !st.InStock {
		t.Fatal("fresh snapshot must be persisted in stock")
	}
}

func TestCycleSteadyInStockIsQuiet(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	store.states["gi/a2"] = watch.BinaryState{VariantKey: "gi/a2", InStock: true}
	legs := []variantLeg{{
		checker: &fakeChecker{avail: watch.InStock},
		cfg:     config.VariantWatch{Key: "gi/a2", ProductName: "Gi", VariantLabel: "A2"},
	}}
	ch := &captureChannel{}
	a := testApp(store, &fakeCatalog{}, legs, ch)

	report := a.RunCycle(context.Background())
	if report.Restocks != 0 || len(ch.events()) != 0 {
		t.Fatalf("steady in-stock fired: %+v", ch.events())
	}
}

func TestCycleStructureNotFoundPersistsOutOfStock(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	legs := []variantLeg{{
		checker: &fakeChecker{avail: watch.StructureNotFound},
		cfg:     config.VariantWatch{Key: "gi/a2", ProductName: "Gi", VariantLabel: "A2"},
	}}
	ch := &captureChannel{}
	a := testApp(store, &fakeCatalog{}, legs, ch)

	report := a.RunCycle(context.Background())
	if report.Restocks != 0 || len(ch.events()) != 0 {
		t.Fatal("structure drift must not fire an alert")
	}
	st, ok := store.states["gi/a2"]
	if !ok || st.InStock {
		t.Fatalf("state = %+v, want persisted out of stock", st)
	}
}

func TestCycleFirstSightPolicyOff(t *testing.T) {
	t.Parallel()
	off := false
	store := newFakeStore()
	legs := []variantLeg{{
		checker: &fakeChecker{avail: watch.InStock},
		cfg: config.VariantWatch{Key: "gi/a2", ProductName: "Gi", VariantLabel: "A2",
			AlertOnFirstSight: &off},
	}}
	ch := &captureChannel{}
	a := testApp(store, &fakeCatalog{}, legs, ch)

	report := a.RunCycle(context.Background())
	if report.Restocks != 0 || len(ch.events()) != 0 {
		t.Fatal("first observation with the policy off must stay quiet")
	}
	if st := store.states["gi/a2"]; !st.InStock {
		t.Fatal("baseline must still be persisted")
	}
}
