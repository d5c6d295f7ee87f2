package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/Veraticus/longbox/internal/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(appCfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	common.LogDebug("Opened database", common.Fields{"path": appCfg.Database.Path})

	return store, nil
}

func newCalculator() (*fees.Calculator, error) {
	calc, err := fees.NewCalculator(appCfg.Fees)
	if err != nil {
		return nil, fmt.Errorf("invalid fee schedule: %w", err)
	}
	return calc, nil
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", outputTable, "output format (table, json, yaml)")
}

// writeOutput renders v as JSON or YAML, or calls table for the default format.
func writeOutput(cmd *cobra.Command, v any, table func(w io.Writer) error) error {
	format, _ := cmd.Flags().GetString("output")
	w := cmd.OutOrStdout()

	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case outputTable, "":
		return table(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeLine(w io.Writer, s string) {
	_, _ = fmt.Fprintln(w, s)
}
