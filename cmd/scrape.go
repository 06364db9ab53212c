package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adv4nt4ge/grocery-scraper/internal/ingest"
)

type scrapeFlags struct {
	category       string
	maxPages       int
	pageDelay      time.Duration
	concurrency    int
	forceDiscovery bool
	export         bool
}

// newScrapeCmd creates the 'scrape' subcommand. Positional arguments narrow
// the run to the named stores; no arguments means every registered store.
func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape [stores...]",
		Short: "Scrape product listings from the registered storefronts",
		Long: `Runs the ingestion engine over the selected stores. Each store's
category tree is resolved (from cache, a menu walk, or curated seeds),
then every category is paginated, extracted, and written to the catalog.
A scrape run audit record is kept per store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, args, flags)
		},
	}
	cmd.Flags().StringVar(&flags.category, "category", "", "scrape only this category (matched by name in every selected store)")
	cmd.Flags().IntVar(&flags.maxPages, "max-pages", -1, "cap listing pages per category (-1 uses the configured default, 0 means unlimited)")
	cmd.Flags().DurationVar(&flags.pageDelay, "page-delay", -1, "pause between listing pages (-1 uses the configured default)")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", 0, "store jobs in flight (0 uses the configured default)")
	cmd.Flags().BoolVar(&flags.forceDiscovery, "force-discovery", false, "discard cached category trees and rediscover")
	cmd.Flags().BoolVar(&flags.export, "export", false, "archive each run's records to the configured object store")
	return cmd
}

func runScrape(cmd *cobra.Command, args []string, flags scrapeFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	log := appInstance.Logger()
	cfg := appInstance.Config()

	runCfg := ingest.Config{
		Concurrency:    cfg.Crawl.Concurrency,
		MaxPages:       cfg.Crawl.MaxPages,
		PageDelay:      cfg.Crawl.PageDelay,
		CategoryDelay:  cfg.Crawl.CategoryDelay,
		ForceDiscovery: flags.forceDiscovery,
		DiscoveryDepth: cfg.Crawl.DiscoveryDepth,
		Retry:          cfg.Retry,
		CollectRecords: flags.export,
	}
	if flags.concurrency > 0 {
		runCfg.Concurrency = flags.concurrency
	}
	if flags.maxPages >= 0 {
		runCfg.MaxPages = flags.maxPages
	}
	if flags.pageDelay >= 0 {
		runCfg.PageDelay = flags.pageDelay
	}

	orch, err := appInstance.NewOrchestrator(runCfg)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	summary, err := orch.Run(cmd.Context(), ingest.Scope{
		Stores:   args,
		Category: flags.category,
	})
	if err != nil {
		return fmt.Errorf("run scrape: %w", err)
	}

	for name, store := range summary.Stores {
		log.Info("store finished",
			zap.String("store", name),
			zap.String("run_id", store.RunID),
			zap.String("status", string(store.Status)),
			zap.Int("pages", store.PagesFetched),
			zap.Int("products", store.ProductsWritten),
			zap.Strings("errors", store.Errors))
	}
	log.Info("scrape finished",
		zap.Int("products_written", summary.ProductsWritten),
		zap.Int("stores_succeeded", summary.StoresSucceeded),
		zap.Int("stores_failed", summary.StoresFailed))

	if summary.StoresSucceeded == 0 && summary.StoresFailed > 0 {
		return fmt.Errorf("all %d stores failed", summary.StoresFailed)
	}
	return nil
}
