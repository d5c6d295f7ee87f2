package main

import (
	"fmt"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			status, _ := cmd.Flags().GetBool("status")

			store, err := storage.NewSQLiteStorage(appCfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			before, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if status {
				writeLine(out, fmt.Sprintf("Database: %s", appCfg.Database.Path))
				writeLine(out, fmt.Sprintf("Schema version: %d (latest %d)", before, storage.ExpectedSchemaVersion))
				return nil
			}

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			common.LogInfo("Database migrated", common.Fields{"path": appCfg.Database.Path, "from": before, "to": storage.ExpectedSchemaVersion})
			if before == storage.ExpectedSchemaVersion {
				writeLine(out, cli.FormatInfo(fmt.Sprintf("Schema already at version %d", before)))
				return nil
			}
			writeLine(out, cli.FormatSuccess(fmt.Sprintf("Migrated schema from version %d to %d", before, storage.ExpectedSchemaVersion)))
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "show the schema version without migrating")
	return cmd
}
