package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newDiscoverCmd creates the 'discover' subcommand: refresh category trees
// without scraping any listings.
func newDiscoverCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "discover [stores...]",
		Short: "Refresh the cached category trees",
		Long: `Resolves each store's category tree (menu walk or curated seeds) and
persists it to the catalog, without fetching any listing pages. Useful
after a storefront changes its navigation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			trees, err := appInstance.DiscoverCategories(cmd.Context(), args, force)
			if err != nil {
				return fmt.Errorf("discover categories: %w", err)
			}
			for store, cats := range trees {
				appInstance.Logger().Info("category tree refreshed",
					zap.String("store", store),
					zap.Int("categories", len(cats)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "discard cached trees and rediscover from the storefronts")
	return cmd
}
