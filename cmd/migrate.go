package cmd

import (
	"context"
	"fmt"

	"riftstats/internal/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations and print the schema version",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	sqlStore, ok := store.(*db.SQLStore)
	if !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "%s store has no schema\n", cfg.StoreDriver)
		return nil
	}
	version, err := sqlStore.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", cfg.StoreDriver, version)
	return nil
}
