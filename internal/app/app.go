// Package app wires the components together and runs poll cycles.
package app

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/wtshilac/random-web-scraper/internal/config"
	"github.com/wtshilac/random-web-scraper/internal/notify"
	"github.com/wtshilac/random-web-scraper/internal/source"
	"github.com/wtshilac/random-web-scraper/internal/storage"
	"github.com/wtshilac/random-web-scraper/internal/watch"
	logx "github.com/wtshilac/random-web-scraper/pkg/logx"
)

// catalogFetcher and variantChecker are the adapter contracts the
// orchestrator needs; tests substitute fakes.
type catalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]watch.Item, error)
}

type variantChecker interface {
	CheckVariant(ctx context.Context, variantLabel string) (watch.Availability, error)
	PageURL() string
}

type variantLeg struct {
	checker variantChecker
	cfg     config.VariantWatch
}

type App struct {
	mu sync.Mutex

	cfg  *config.Config
	logs *logx.Service
	log  logx.Logger

	store      storage.Store
	catalog    catalogFetcher
	variants   []variantLeg
	dispatcher *notify.Dispatcher
}

// New builds the app from a validated config. A store that cannot be
// opened is the one fatal construction failure; everything else degrades.
func New(cfg *config.Config, logs *logx.Service, log logx.Logger) (*App, error) {
	a := &App{
		cfg:  cfg,
		logs: logs,
		log:  log.With(logx.String("comp", "app")),
	}

	st, err := storage.Open(storeConfig(cfg), log.With(logx.String("comp", "store")))
	if err != nil {
		return nil, err
	}
	a.store = st
	a.buildComponents(cfg)
	return a, nil
}

func (a *App) Close() error {
	a.mu.Lock()
	st := a.store
	a.store = nil
	a.mu.Unlock()
	if st != nil {
		return st.Close()
	}
	return nil
}

// Apply reconfigures the app between cycles. The store is reopened only
// when its section changed; if the new store fails to open the old one
// stays in place.
func (a *App) Apply(cfg *config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.logs != nil {
		a.logs.Apply(logx.Config{
			Level:   cfg.Logging.Level,
			Console: cfg.Logging.Console,
			File:    logx.FileConfig{Enabled: cfg.Logging.File.Enabled, Path: cfg.Logging.File.Path},
		})
	}

	if !reflect.DeepEqual(a.cfg.Store, cfg.Store) {
		st, err := storage.Open(storeConfig(cfg), a.log.With(logx.String("comp", "store")))
		if err != nil {
			a.log.Warn("store reconfigure failed; keeping previous store", logx.Err(err))
			return err
		}
		if a.store != nil {
			_ = a.store.Close()
		}
		a.store = st
	}

	a.buildComponents(cfg)
	a.cfg = cfg
	return nil
}

// buildComponents rebuilds sources and dispatcher from cfg. Caller holds
// the lock (or is still constructing).
func (a *App) buildComponents(cfg *config.Config) {
	catalogTimeout, _ := config.ParseDurationField("watch.catalog.timeout", cfg.Watch.Catalog.Timeout)
	a.catalog = source.NewCatalogClient(cfg.Watch.Catalog.URL, catalogTimeout,
		a.log.With(logx.String("comp", "catalog")))

	a.variants = a.variants[:0]
	for _, v := range cfg.Watch.Variants {
		timeout, _ := config.ParseDurationField("watch.variants.timeout", v.Timeout)
		a.variants = append(a.variants, variantLeg{
			checker: source.NewVariantChecker(v.PageURL, timeout,
				a.log.With(logx.String("comp", "variant"), logx.String("variant", v.Key))),
			cfg: v,
		})
	}

	channels := notify.BuildChannels(cfg.Notify, a.log.With(logx.String("comp", "notify")))
	a.dispatcher = notify.NewDispatcher(channels, cfg.Notify.RatePerSec,
		a.log.With(logx.String("comp", "notify")))
}

func storeConfig(cfg *config.Config) storage.Config {
	busy, _ := config.ParseDurationOrDefault("store.busy_timeout", cfg.Store.BusyTimeout, 5*time.Second)
	timeout, _ := config.ParseDurationOrDefault("store.timeout", cfg.Store.Timeout, 10*time.Second)
	return storage.Config{
		Driver:      cfg.Store.Driver,
		Path:        cfg.Store.Path,
		BusyTimeout: busy,
		URL:         cfg.Store.URL,
		Key:         cfg.Store.Key,
		Timeout:     timeout,
	}
}
