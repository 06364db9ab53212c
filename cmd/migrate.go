package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newMigrateCmd creates the 'migrate' subcommand: create the database schema.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long: `Creates the categories, products, and scrape_runs tables if they do
not exist. Safe to rerun; a no-op with the in-memory store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := appInstance.Bootstrap(cmd.Context()); err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}
			appInstance.Logger().Info("schema is up to date")
			return nil
		},
	}
}
