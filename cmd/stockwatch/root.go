package main

import (
	"context"
	"os"

	"stockwatch/config"
	"stockwatch/internal/app"
	"stockwatch/observability"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand
type cli struct {
	envFile string
	verbose bool
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "stockwatch",
		Short: "Stock lookup and watchlist service",
		Long: `stockwatch resolves tickers into price, performance and fundamentals
from public market data sources, and keeps named watchlists.

Configuration comes from an optional YAML file (STOCKWATCH_CONFIG),
then environment variables, then a .env file if present.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newServeCmd(c),
		newQuoteCmd(c),
		newHistoryCmd(c),
		newSearchCmd(c),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if err := godotenv.Load(c.envFile); err != nil && !os.IsNotExist(err) {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := observability.ParseLevel(cfg.Log.Level)
	if c.verbose {
		level = observability.ParseLevel("debug")
	}
	if cmd.Name() == "serve" {
		observability.InitLoggerWithLevel(cfg.Log.Production, level)
	} else {
		observability.InitLoggerTo(cmd.ErrOrStderr(), cfg.Log.Production, level)
	}
	observability.InitMetrics()
	return nil
}

// build wires the application. The refresh scheduler only belongs to the server.
func (c *cli) build(ctx context.Context, withScheduler bool) (*app.App, error) {
	cfg := *c.cfg
	if !withScheduler {
		cfg.Scheduler.RefreshSpec = ""
	}
	return app.Build(ctx, &cfg)
}
