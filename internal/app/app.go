// Package app initializes and holds long-lived application services, acting
// as the dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/archive"
	"github.com/adv4nt4ge/grocery-scraper/internal/clock/system"
	"github.com/adv4nt4ge/grocery-scraper/internal/config"
	"github.com/adv4nt4ge/grocery-scraper/internal/fetch/direct"
	"github.com/adv4nt4ge/grocery-scraper/internal/fetch/rendered"
	"github.com/adv4nt4ge/grocery-scraper/internal/id/uuid"
	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
	"github.com/adv4nt4ge/grocery-scraper/internal/logging"
	"github.com/adv4nt4ge/grocery-scraper/internal/notify"
	"github.com/adv4nt4ge/grocery-scraper/internal/progress"
	"github.com/adv4nt4ge/grocery-scraper/internal/progress/sinks"
	"github.com/adv4nt4ge/grocery-scraper/internal/storage/memory"
	"github.com/adv4nt4ge/grocery-scraper/internal/storage/postgres"
	"github.com/adv4nt4ge/grocery-scraper/internal/stores"
)

// App holds the shared, long-lived services. It is initialized once at
// startup and passed to the commands that need it.
type App struct {
	cfg      config.Config
	log      *zap.Logger
	registry *stores.Registry

	catalog ingest.CatalogStore
	runs    ingest.RunStore
	pool    *postgres.Pool

	exporter  ingest.RunExporter
	notifier  ingest.RunNotifier
	pubsubPub *notify.PubSubPublisher
	gcsClient *gcstorage.Client

	hub      *progress.Hub
	rendered *rendered.Fetcher
	direct   *direct.Fetcher
}

// New builds the container from configuration, failing fast when any
// critical service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}

	a := &App{
		cfg:      cfg,
		log:      logger,
		registry: stores.Defaults(),
	}
	if err := a.initStores(ctx); err != nil {
		return nil, err
	}
	if err := a.initArchive(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initNotify(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initProgress(); err != nil {
		a.Close()
		return nil, err
	}
	a.initFetchers()

	logger.Info("application services initialized",
		zap.String("database", cfg.Database.Provider),
		zap.String("archive", cfg.Archive.Provider),
		zap.String("notify", cfg.Notify.Provider))
	return a, nil
}

func (a *App) initStores(ctx context.Context) error {
	switch a.cfg.Database.Provider {
	case "postgres":
		a.log.Info("connecting to postgres")
		pool, err := postgres.New(ctx, postgres.Config{
			DSN:             a.cfg.Database.DSN,
			MaxConns:        a.cfg.Database.MaxConns,
			MinConns:        a.cfg.Database.MinConns,
			MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		a.pool = pool
		a.catalog = postgres.NewCatalogStore(pool)
		a.runs = postgres.NewRunStore(pool)
	case "memory":
		a.log.Info("using in-memory stores, data will not survive a restart")
		a.catalog = memory.NewCatalogStore()
		a.runs = memory.NewRunStore()
	default:
		return fmt.Errorf("unknown database provider: %s", a.cfg.Database.Provider)
	}
	return nil
}

func (a *App) initArchive(ctx context.Context) error {
	var objects archive.ObjectStore
	switch a.cfg.Archive.Provider {
	case "none":
		return nil
	case "local":
		store, err := archive.NewLocalStore(a.cfg.Archive.LocalDir)
		if err != nil {
			return fmt.Errorf("initialize local archive: %w", err)
		}
		objects = store
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("initialize gcs client: %w", err)
		}
		a.gcsClient = client
		store, err := archive.NewGCSStore(ctx, client, a.cfg.Archive.GCSBucket)
		if err != nil {
			return fmt.Errorf("initialize gcs archive: %w", err)
		}
		objects = store
	default:
		return fmt.Errorf("unknown archive provider: %s", a.cfg.Archive.Provider)
	}
	exporter, err := archive.NewExporter(objects, a.log)
	if err != nil {
		return fmt.Errorf("initialize exporter: %w", err)
	}
	a.exporter = exporter
	return nil
}

func (a *App) initNotify(ctx context.Context) error {
	switch a.cfg.Notify.Provider {
	case "none":
		return nil
	case "pubsub":
		a.log.Info("connecting to pubsub", zap.String("topic", a.cfg.Notify.Topic))
		pub, err := notify.NewPubSubPublisher(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.Topic)
		if err != nil {
			return fmt.Errorf("initialize pubsub: %w", err)
		}
		a.pubsubPub = pub
		notifier, err := notify.NewNotifier(pub, a.cfg.Notify.Topic, a.log)
		if err != nil {
			return fmt.Errorf("initialize notifier: %w", err)
		}
		a.notifier = notifier
		return nil
	default:
		return fmt.Errorf("unknown notify provider: %s", a.cfg.Notify.Provider)
	}
}

func (a *App) initProgress() error {
	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("initialize progress metrics: %w", err)
	}
	a.hub = progress.NewHub(progress.Config{Logger: a.log},
		sinks.NewLogSink(a.log), promSink)
	return nil
}

func (a *App) initFetchers() {
	filter := ingest.NewPatternFilter(a.cfg.Blocklist)
	a.rendered = rendered.New(rendered.Config{
		UserAgent:  a.cfg.Crawl.UserAgent,
		MaxTabs:    a.cfg.Render.MaxTabs,
		NavTimeout: a.cfg.Render.NavTimeout,
		NavQPS:     a.cfg.Render.NavQPS,
	}, filter, a.log)
	a.direct = direct.New(direct.Config{
		UserAgent: a.cfg.Crawl.UserAgent,
		Timeout:   a.cfg.Direct.Timeout,
	}, a.log)
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.log
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config {
	return a.cfg
}

// Registry returns the registered storefront templates.
func (a *App) Registry() *stores.Registry {
	return a.registry
}

// Runs exposes the run store for the HTTP surface.
func (a *App) Runs() ingest.RunStore {
	return a.runs
}

// Pinger reports the database pool when one is configured, for readiness
// probes. Memory stores are always ready.
func (a *App) Pinger() *postgres.Pool {
	return a.pool
}

// Bootstrap creates the database schema when a real database is configured.
func (a *App) Bootstrap(ctx context.Context) error {
	if a.pool == nil {
		a.log.Info("memory stores need no schema, skipping bootstrap")
		return nil
	}
	return a.pool.Bootstrap(ctx)
}

// NewOrchestrator assembles an engine invocation from the container's
// services and the given invocation config.
func (a *App) NewOrchestrator(cfg ingest.Config) (*ingest.Orchestrator, error) {
	return ingest.NewOrchestrator(cfg, a.registry.All(), ingest.Deps{
		Fetchers: map[ingest.FetchStrategy]ingest.Fetcher{
			ingest.StrategyRendered: a.rendered,
			ingest.StrategyDirect:   a.direct,
		},
		Catalog:  a.catalog,
		Runs:     a.runs,
		Clock:    system.New(),
		IDs:      uuid.New(),
		Emitter:  a.hub,
		Exporter: a.exporter,
		Notifier: a.notifier,
		Logger:   a.log,
	})
}

// DiscoverCategories refreshes the category trees of the named stores (all
// registered stores when names is empty) and returns the categories per
// store. One store's failure does not stop the others.
func (a *App) DiscoverCategories(ctx context.Context, names []string, force bool) (map[string][]ingest.Category, error) {
	templates := a.registry.All()
	if len(names) > 0 {
		templates = templates[:0:0]
		for _, name := range names {
			tpl, ok := a.registry.Get(name)
			if !ok {
				return nil, fmt.Errorf("unknown store %q", name)
			}
			templates = append(templates, tpl)
		}
	}

	discoverer := ingest.NewDiscoverer(a.catalog, a.cfg.Crawl.DiscoveryDepth, a.log)
	fetchers := map[ingest.FetchStrategy]ingest.Fetcher{
		ingest.StrategyRendered: a.rendered,
		ingest.StrategyDirect:   a.direct,
	}

	out := make(map[string][]ingest.Category, len(templates))
	var firstErr error
	for _, tpl := range templates {
		cats, err := discoverer.Discover(ctx, tpl, fetchers[tpl.Strategy], force)
		if err != nil {
			a.log.Error("category discovery failed",
				zap.String("store", tpl.Store), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out[tpl.Store] = cats
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Close shuts services down in reverse initialization order. Called by a
// Cobra hook after the command finishes.
func (a *App) Close() {
	if a.rendered != nil {
		a.rendered.Close()
	}
	if a.hub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.hub.Close(ctx); err != nil {
			a.log.Warn("progress hub close", zap.Error(err))
		}
		cancel()
	}
	if a.pubsubPub != nil {
		if err := a.pubsubPub.Close(); err != nil {
			a.log.Warn("pubsub close", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.log.Warn("gcs client close", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	// Best-effort flush; stderr sync failures are expected on some platforms.
	_ = a.log.Sync()
}
