package app

import (
	"context"
	"time"

	"github.com/wtshilac/random-web-scraper/internal/config"
	"github.com/wtshilac/random-web-scraper/internal/detect"
	"github.com/wtshilac/random-web-scraper/internal/storage"
	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// RunCycle runs one poll cycle end to end: sources, detection, persistence,
// dispatch. Source and store failures degrade per leg and are collected in
// the report; a cycle always runs to completion.
func (a *App) RunCycle(ctx context.Context) watch.CycleReport {
	// Snapshot components so a concurrent Apply() cannot swap them
	// mid-cycle. A new config takes effect on the next cycle.
	a.mu.Lock()
	cfg := a.cfg
	store := a.store
	catalog := a.catalog
	variants := append([]variantLeg(nil), a.variants...)
	dispatcher := a.dispatcher
	a.mu.Unlock()

	report := watch.CycleReport{Started: time.Now()}
	a.log.Info("cycle started",
		logx.String("keyword", cfg.Watch.Catalog.Keyword),
		logx.Int("variant_watches", len(variants)))

	var events []watch.ChangeEvent
	events = append(events, a.runCatalogLeg(ctx, cfg.Watch.Catalog, store, catalog, &report)...)
	for _, leg := range variants {
		events = append(events, a.runVariantLeg(ctx, leg, store, &report)...)
	}

	dispatcher.Dispatch(ctx, events)

	report.Duration = time.Since(report.Started)
	a.log.Info("cycle finished",
		logx.Int("items_seen", report.ItemsSeen),
		logx.Int("new_items", report.NewItems),
		logx.Int("restocks", report.Restocks),
		logx.Int("errors", len(report.Errors)),
		logx.Duration("took", report.Duration))
	return report
}

// runCatalogLeg fetches the catalog, detects unseen ids and persists the
// full filtered set. The known-id snapshot is taken before the upsert;
// reversing that order would mark every item as already known.
func (a *App) runCatalogLeg(ctx context.Context, cw config.CatalogWatch, store storage.Store, catalog catalogFetcher, report *watch.CycleReport) []watch.ChangeEvent {
	items, err := catalog.FetchCatalog(ctx)
	if err != nil {
		a.log.Warn("catalog source unavailable; skipping leg", logx.Err(err))
		report.AddError("catalog", err)
		return nil
	}

	matched := detect.FilterByKeyword(items, cw.Keyword)
	report.ItemsSeen += len(matched)
	if len(matched) == 0 {
		a.log.Debug("no items match keyword", logx.String("keyword", cw.Keyword))
		return nil
	}

	known, err := store.KnownIDs(ctx, watch.SourceCatalog)
	if err != nil {
		// Availability over consistency: an unreachable store must not
		// block the cycle. Duplicate new-item alerts are the accepted cost.
		a.log.Warn("known-id load failed; treating all items as new", logx.Err(err))
		known = map[string]struct{}{}
	}

	events := detect.NewItems(matched, known)

	// Upsert everything regardless of new/known status so price drift on
	// known items is captured.
	if err := store.UpsertItems(ctx, matched); err != nil {
		a.log.Warn("item upsert failed; continuing without persistence", logx.Err(err))
		report.AddError("catalog upsert", err)
	}

	report.NewItems += len(events)
	return events
}

// runVariantLeg checks one scraped variant and fires on the out-of-stock
// to in-stock edge. The fresh snapshot is persisted unconditionally, event
// or not.
func (a *App) runVariantLeg(ctx context.Context, leg variantLeg, store storage.Store, report *watch.CycleReport) []watch.ChangeEvent {
	avail, err := leg.checker.CheckVariant(ctx, leg.cfg.VariantLabel)
	if err != nil {
		a.log.Warn("variant source unavailable; skipping leg",
			logx.String("variant", leg.cfg.Key), logx.Err(err))
		report.AddError("variant "+leg.cfg.Key, err)
		return nil
	}
	if avail == watch.StructureNotFound {
		a.log.Warn("variant control not found; page layout may have drifted",
			logx.String("variant", leg.cfg.Key), logx.String("url", leg.checker.PageURL()))
	}

	prev, found, err := store.VariantState(ctx, leg.cfg.Key)
	if err != nil {
		a.log.Warn("variant state load failed; treating as first observation",
			logx.String("variant", leg.cfg.Key), logx.Err(err))
		found = false
	}

	fire := detect.RestockEdge(prev, found, avail, leg.cfg.FirstSight())

	next := watch.BinaryState{
		VariantKey:    leg.cfg.Key,
		ProductName:   leg.cfg.ProductName,
		VariantName:   leg.cfg.VariantLabel,
		InStock:       avail == watch.InStock,
		LastCheckedAt: time.Now(),
	}
	if err := store.UpsertVariantState(ctx, next); err != nil {
		a.log.Warn("variant state upsert failed; continuing without persistence",
			logx.String("variant", leg.cfg.Key), logx.Err(err))
		report.AddError("variant upsert "+leg.cfg.Key, err)
	}

	if !fire {
		a.log.Debug("variant checked",
			logx.String("variant", leg.cfg.Key), logx.String("availability", avail.String()))
		return nil
	}

	report.Restocks++
	return []watch.ChangeEvent{
		detect.RestockEvent(leg.cfg.ProductName, leg.cfg.VariantLabel, leg.checker.PageURL()),
	}
}
