// Package cmd defines and implements the CLI commands for the
// grocery-scraper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/app"
	"github.com/adv4nt4ge/grocery-scraper/internal/config"
	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
	"github.com/adv4nt4ge/grocery-scraper/internal/storage/postgres"
	"github.com/adv4nt4ge/grocery-scraper/internal/stores"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the surface commands use. An interface so tests can inject a mock.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Registry() *stores.Registry
	Runs() ingest.RunStore
	Pinger() *postgres.Pool
	Bootstrap(ctx context.Context) error
	NewOrchestrator(cfg ingest.Config) (*ingest.Orchestrator, error)
	DiscoverCategories(ctx context.Context, names []string, force bool) (map[string][]ingest.Category, error)
}

// newApp is the application factory, a variable so tests can replace it.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grocery-scraper",
		Short: "Multi-strategy grocery price ingestion engine.",
		Long: `grocery-scraper collects normalized product listings from Ukrainian
grocery storefronts. JavaScript-heavy stores are rendered in headless
Chrome; server-rendered stores are fetched over plain HTTP. Results land
in a shared catalog with a per-run audit trail.`,

		// Runs before every subcommand: build the container and stash it
		// in the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		// Shuts services down after the subcommand finishes.
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (optional, env vars and defaults apply without it)")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newDiscoverCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
