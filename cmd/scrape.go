package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/app"
	"github.com/JakeFAU/catalog-prober/internal/config"
	"github.com/JakeFAU/catalog-prober/internal/logging"
	"github.com/JakeFAU/catalog-prober/internal/prober"
)

// runner is the slice of *app.App the scrape command drives.
type runner interface {
	Run(ctx context.Context) (prober.RunSummary, error)
	Close(ctx context.Context) error
}

// newApp is the application factory. It is a variable so tests can inject
// collaborators.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (runner, error) {
	return app.Build(ctx, cfg, logger)
}

type scrapeFlags struct {
	workers   int
	perWorker int
	start     string
	stop      string
	delay     float64
	proxies   bool
	proxyFile string
	dsn       string
	store     string
	serve     bool
}

func newScrapeCmd(root *rootOptions) *cobra.Command {
	flags := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "scrape <target>",
		Short: "Probe a target's id space for new products",
		Long: `Probes ids from --start to --stop (or until the target's digit limit
when --stop is -1), split across --workers workers. Run "prober targets" for
the supported sites.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			cfg.Scrape.Target = args[0]
			flags.apply(cmd.Flags(), &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			return runScrape(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&flags.workers, "workers", "t", 10, "number of concurrent workers")
	f.IntVarP(&flags.perWorker, "per-worker", "n", 0, "ids per worker when --stop is -1, 0 uses the default; a bounded range is split evenly")
	f.StringVarP(&flags.start, "start", "s", "1", "first id to probe")
	f.StringVarP(&flags.stop, "stop", "e", "-1", "last id to probe, -1 for unbounded")
	f.Float64VarP(&flags.delay, "delay", "d", 1, "base delay in seconds: staggers worker starts, paces notifications and scales the 429 pause")
	f.BoolVarP(&flags.proxies, "proxies", "p", false, "rotate through the proxy file")
	f.StringVar(&flags.proxyFile, "proxy-file", "proxies.txt", "proxy list, one host:port[:user:pass] per line")
	f.StringVar(&flags.dsn, "dsn", "", "postgres connection string")
	f.StringVar(&flags.store, "store", config.StorePostgres, "id store provider: postgres or memory")
	f.BoolVar(&flags.serve, "serve", false, "serve the status API while scraping")
	return cmd
}

// apply copies flags the user set explicitly over the loaded config.
func (f *scrapeFlags) apply(set *pflag.FlagSet, cfg *config.Config) {
	if set.Changed("workers") {
		cfg.Scrape.Workers = f.workers
	}
	if set.Changed("per-worker") {
		cfg.Scrape.PerWorker = f.perWorker
	}
	if set.Changed("start") {
		cfg.Scrape.Start = f.start
	}
	if set.Changed("stop") {
		cfg.Scrape.Stop = f.stop
	}
	if set.Changed("delay") {
		cfg.Scrape.DelaySeconds = f.delay
	}
	if set.Changed("proxies") {
		cfg.Scrape.UseProxies = f.proxies
	}
	if set.Changed("proxy-file") {
		cfg.Scrape.ProxyFile = f.proxyFile
	}
	if set.Changed("dsn") {
		cfg.Store.DSN = f.dsn
	}
	if set.Changed("store") {
		cfg.Store.Provider = f.store
	}
	if set.Changed("serve") {
		cfg.Server.Enabled = f.serve
	}
}

func runScrape(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Debug)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("failed to close application", zap.Error(cerr))
		}
	}()

	summary, err := a.Run(ctx)
	if err != nil {
		return err
	}
	if len(summary.Discovered) > 0 {
		logger.Info("new ids", zap.String("target", summary.Target), zap.Int64s("ids", summary.Discovered))
	}
	return nil
}
