// Package app builds the prober's long-lived services from configuration and
// owns their shutdown, acting as the dependency injection container for the
// commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/catalog-prober/internal/api"
	"github.com/JakeFAU/catalog-prober/internal/clock/system"
	"github.com/JakeFAU/catalog-prober/internal/config"
	collyfetcher "github.com/JakeFAU/catalog-prober/internal/fetcher/colly"
	"github.com/JakeFAU/catalog-prober/internal/id/uuid"
	"github.com/JakeFAU/catalog-prober/internal/metrics"
	"github.com/JakeFAU/catalog-prober/internal/notify"
	"github.com/JakeFAU/catalog-prober/internal/notify/logsink"
	pubsubnotify "github.com/JakeFAU/catalog-prober/internal/notify/pubsub"
	"github.com/JakeFAU/catalog-prober/internal/notify/webhook"
	"github.com/JakeFAU/catalog-prober/internal/progress"
	progresssinks "github.com/JakeFAU/catalog-prober/internal/progress/sinks"
	"github.com/JakeFAU/catalog-prober/internal/prober"
	"github.com/JakeFAU/catalog-prober/internal/proxies"
	"github.com/JakeFAU/catalog-prober/internal/report"
	"github.com/JakeFAU/catalog-prober/internal/scraper"
	"github.com/JakeFAU/catalog-prober/internal/site"
	gcsstorage "github.com/JakeFAU/catalog-prober/internal/storage/gcs"
	localstorage "github.com/JakeFAU/catalog-prober/internal/storage/local"
	memorystorage "github.com/JakeFAU/catalog-prober/internal/storage/memory"
	pgstore "github.com/JakeFAU/catalog-prober/internal/storage/postgres"
)

// App contains the application's dependencies.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	registry    *site.Registry
	store       prober.Store
	notifier    prober.Notifier
	pubsub      *pubsubnotify.Notifier
	blobs       *gcsstorage.BlobStore
	progressHub *progress.Hub
	tracker     *progresssinks.Tracker
	scraper     *scraper.Scraper
	apiServer   *api.Server
}

// Option overrides a collaborator Build would otherwise derive from config.
type Option func(*options)

type options struct {
	prober     prober.Prober
	store      prober.Store
	notifier   prober.Notifier
	registerer prometheus.Registerer
	registry   *site.Registry
}

// WithProber replaces the colly HEAD prober.
func WithProber(p prober.Prober) Option {
	return func(o *options) { o.prober = p }
}

// WithStore replaces the configured id store.
func WithStore(s prober.Store) Option {
	return func(o *options) { o.store = s }
}

// WithNotifier replaces the configured notifier.
func WithNotifier(n prober.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithRegisterer registers run metrics against reg instead of the default
// Prometheus registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithRegistry replaces the built-in target registry.
func WithRegistry(r *site.Registry) Option {
	return func(o *options) { o.registry = r }
}

// Build creates the application's dependencies. Services opened before a
// failure are closed again.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (_ *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{registerer: prometheus.DefaultRegisterer, registry: site.DefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(cfg.Scrape.Target) == "" {
		return nil, fmt.Errorf("%w: scrape.target", prober.ErrConfigurationMissing)
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger, registry: o.registry}
	defer func() {
		if err != nil {
			a.closeInfrastructure(context.WithoutCancel(ctx))
		}
	}()
	a.logger.Info("building application dependencies", zap.String("target", cfg.Scrape.Target))

	if a.store = o.store; a.store == nil {
		if a.store, err = setupStore(ctx, a); err != nil {
			return nil, err
		}
	}
	if a.notifier = o.notifier; a.notifier == nil {
		if a.notifier, err = setupNotifier(ctx, a); err != nil {
			return nil, err
		}
	}
	probe := o.prober
	if probe == nil {
		if probe, err = setupFetcher(a); err != nil {
			return nil, err
		}
	}
	reports, err := setupReports(ctx, a)
	if err != nil {
		return nil, err
	}
	if err = setupProgress(a, o.registerer); err != nil {
		return nil, err
	}

	a.scraper, err = scraper.New(ctx, scraper.Deps{
		Registry: a.registry,
		Store:    a.store,
		Notifier: a.notifier,
		Prober:   probe,
		IDs:      uuid.New(),
		Clock:    system.New(),
		Reports:  reports,
		Progress: a.progressHub,
	}, scraper.Config{
		Target:        cfg.Scrape.Target,
		Start:         cfg.Scrape.Start,
		Stop:          cfg.Scrape.Stop,
		BaseDelay:     cfg.BaseDelay(),
		DrainInterval: cfg.DrainInterval(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("scraper init failed: %w", err)
	}

	if cfg.Server.Enabled {
		a.apiServer = api.NewServer(api.Deps{
			Scraper: a.scraper,
			Runs:    a.tracker,
			Targets: a.registry.Names(),
			APIKey:  cfg.Server.APIKey,
		}, logger)
	}
	return a, nil
}

func setupStore(ctx context.Context, a *App) (prober.Store, error) {
	switch a.cfg.Store.Provider {
	case config.StoreMemory:
		a.logger.Warn("using in-memory id store, discoveries are not persisted")
		return memorystorage.NewIDStore(), nil
	default:
		if a.cfg.Store.DSN == "" {
			return nil, fmt.Errorf("%w: store.dsn", prober.ErrConfigurationMissing)
		}
		store, err := pgstore.NewIDStore(ctx, pgstore.Config{
			DSN:         a.cfg.Store.DSN,
			TablePrefix: a.cfg.Store.TablePrefix,
			MaxConns:    a.cfg.Store.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("id store init failed: %w", err)
		}
		a.logger.Info("postgres id store initialized", zap.String("table_prefix", a.cfg.Store.TablePrefix))
		return store, nil
	}
}

// setupNotifier builds the outbound sink. Webhook and Pub/Sub deliveries are
// mirrored to the log so the console shows every discovery.
func setupNotifier(ctx context.Context, a *App) (prober.Notifier, error) {
	console := logsink.New(a.logger)
	switch a.cfg.Notify.Provider {
	case config.NotifyWebhook:
		url, err := webhook.Resolve(a.cfg.Notify.Webhooks, a.cfg.Scrape.Target)
		if err != nil {
			return nil, fmt.Errorf("resolve webhook: %w", err)
		}
		color, err := webhook.ParseColor(a.cfg.Notify.Embed.Color)
		if err != nil {
			return nil, err
		}
		hook, err := webhook.New(webhook.Config{
			URL:     url,
			Color:   color,
			Footer:  a.cfg.Notify.Embed.Footer,
			Timeout: a.cfg.ProbeTimeout(),
		}, nil, a.logger)
		if err != nil {
			return nil, fmt.Errorf("webhook init failed: %w", err)
		}
		a.logger.Info("webhook notifier initialized")
		return notify.Fanout{hook, console}, nil
	case config.NotifyPubSub:
		n, err := pubsubnotify.NewNotifier(ctx, a.cfg.Notify.PubSub.ProjectID, a.cfg.Notify.PubSub.Topic, a.logger)
		if err != nil {
			return nil, fmt.Errorf("pubsub notifier init failed: %w", err)
		}
		a.pubsub = n
		a.logger.Info("Pub/Sub notifier initialized",
			zap.String("project", a.cfg.Notify.PubSub.ProjectID),
			zap.String("topic", a.cfg.Notify.PubSub.Topic),
		)
		return notify.Fanout{n, console}, nil
	default:
		a.logger.Info("using log notifier")
		return console, nil
	}
}

func setupFetcher(a *App) (prober.Prober, error) {
	var pool []string
	if a.cfg.Scrape.UseProxies {
		var err error
		pool, err = proxies.Load(a.cfg.Scrape.ProxyFile)
		if err != nil {
			return nil, fmt.Errorf("load proxies: %w", err)
		}
		if len(pool) <= 1 {
			a.logger.Warn("proxy pool needs more than one entry, probing directly",
				zap.Int("proxies", len(pool)))
		}
	}
	f, err := collyfetcher.New(collyfetcher.Config{
		UserAgents: a.cfg.Scrape.UserAgents,
		Proxies:    pool,
		Timeout:    a.cfg.ProbeTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("fetcher init failed: %w", err)
	}
	a.logger.Info("using colly probe fetcher",
		zap.Int("user_agents", len(a.cfg.Scrape.UserAgents)),
		zap.Int("proxies", len(pool)),
		zap.Duration("timeout", a.cfg.ProbeTimeout()),
	)
	return f, nil
}

func setupReports(ctx context.Context, a *App) (prober.ReportWriter, error) {
	switch a.cfg.Report.Provider {
	case config.ReportLocal:
		blobs, err := localstorage.New(localstorage.Config{BaseDir: a.cfg.Report.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("local report store init failed: %w", err)
		}
		a.logger.Debug("local report store", zap.String("path", a.cfg.Report.BaseDir))
		return report.New(blobs, a.cfg.Report.Prefix), nil
	case config.ReportGCS:
		blobs, err := gcsstorage.Open(ctx, gcsstorage.Config{Bucket: a.cfg.Report.Bucket}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("gcs report store init failed: %w", err)
		}
		a.blobs = blobs
		a.logger.Debug("GCS report store", zap.String("bucket", a.cfg.Report.Bucket))
		return report.New(blobs, a.cfg.Report.Prefix), nil
	default:
		a.logger.Debug("run reports disabled")
		return nil, nil
	}
}

func setupProgress(a *App, reg prometheus.Registerer) error {
	promSink, err := progresssinks.NewPrometheusSink(reg)
	if err != nil {
		return fmt.Errorf("progress metrics init failed: %w", err)
	}
	a.tracker = progresssinks.NewTracker(0)
	a.progressHub = progress.NewHub(
		progress.Config{Logger: a.logger.Named("progress_hub")},
		a.tracker,
		progresssinks.NewLogSink(a.logger.Named("progress_log")),
		promSink,
	)
	a.logger.Debug("progress hub initialized")
	return nil
}

// Scraper exposes the built scraper.
func (a *App) Scraper() *scraper.Scraper {
	return a.scraper
}

// Tracker exposes the run tracker fed by the progress hub.
func (a *App) Tracker() *progresssinks.Tracker {
	return a.tracker
}

// Server returns the status API, or nil when the server is disabled.
func (a *App) Server() *api.Server {
	return a.apiServer
}

// Run performs one scrape with the configured worker counts. When the status
// server is enabled it serves for the duration of the run.
func (a *App) Run(ctx context.Context) (prober.RunSummary, error) {
	var summary prober.RunSummary
	runCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	g, gctx := errgroup.WithContext(runCtx)
	if a.apiServer != nil {
		addr := fmt.Sprintf(":%d", a.cfg.Server.Port)
		g.Go(func() error {
			return a.apiServer.ListenAndServe(gctx, addr)
		})
	}
	g.Go(func() error {
		defer stopServer()
		var err error
		summary, err = a.scraper.Scrape(ctx, a.cfg.Scrape.Workers, a.cfg.Scrape.PerWorker)
		if err != nil {
			return fmt.Errorf("scrape %s: %w", a.cfg.Scrape.Target, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return summary, err
	}
	return summary, nil
}

// Close gracefully shuts down the application.
func (a *App) Close(ctx context.Context) error {
	a.closeInfrastructure(ctx)
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeInfrastructure(ctx context.Context) {
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.blobs != nil {
		if err := a.blobs.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.store != nil {
		a.store.Close()
	}
}
