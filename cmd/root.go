// Package cmd defines the CLI commands for the prober executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-prober/internal/config"
	"github.com/JakeFAU/catalog-prober/internal/logging"
)

type rootOptions struct {
	configFile string
	debug      bool
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "prober",
		Short: "Discovers newly published catalog ids on retail sites.",
		Long: `prober walks a site's numeric product id space and issues a HEAD
request for each id's product image. Ids that resolve are stored and announced
so new releases show up before they are linked anywhere.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "log every probe")

	cmd.AddCommand(newScrapeCmd(opts))
	cmd.AddCommand(newTargetsCmd())
	return cmd
}

// loadConfig reads the config file named by --config and applies --debug.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if o.debug {
		cfg.Logging.Debug = true
	}
	return cfg, nil
}

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
func Execute() {
	bootstrap, err := logging.New(true, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	zap.ReplaceGlobals(bootstrap)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		zap.L().Fatal("command execution failed", zap.Error(err))
	}
}
