package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/sheets"
	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <seller-id>",
		Short: "Export a seller's tax report to Google Sheets",
		Long: `Write a seller's yearly totals, monthly breakdown, and sale details to a
Google spreadsheet.

Authenticate either with a service account (sheets.service_account_path)
or with OAuth2 credentials. Run 'longbox report auth' once to obtain an
OAuth2 refresh token.`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().Int("year", time.Now().Year(), "tax year")
	cmd.Flags().String("spreadsheet-id", "", "existing spreadsheet to overwrite")
	cmd.AddCommand(reportAuthCmd())

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	year, _ := cmd.Flags().GetInt("year")

	sheetsCfg := appCfg.Sheets
	if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
		sheetsCfg.SpreadsheetID = id
	}
	if sheetsCfg.RefreshToken == "" && sheetsCfg.TokenFile != "" {
		if token, err := sheets.LoadToken(sheetsCfg.TokenFile); err == nil {
			sheetsCfg.RefreshToken = token.RefreshToken
		}
	}
	if err := sheetsCfg.Validate(); err != nil {
		return common.NewUserError(
			"Google Sheets is not configured. Set sheets.service_account_path or run 'longbox report auth'.", err)
	}

	writer, err := sheets.NewWriter(ctx, sheetsCfg, slog.Default())
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	report, err := sheets.Export(ctx, store, writer, args[0], year)
	if err != nil {
		return err
	}

	totals := sheets.FormatTotals(report)
	writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"Exported %d sales for %s (%d): gross %s, net %s",
		len(report.Sales), report.Seller.DisplayName, year, totals["gross"], totals["net"])))
	return nil
}

func reportAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize longbox to write Google Sheets",
		Long: `Run the Google OAuth2 consent flow in your browser and save the
resulting token to sheets.token_file. Requires sheets.client_id and
sheets.client_secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := appCfg.Sheets
			if cfg.ClientID == "" || cfg.ClientSecret == "" {
				return common.NewUserError(
					"Set sheets.client_id and sheets.client_secret (or GOOGLE_SHEETS_CLIENT_ID / GOOGLE_SHEETS_CLIENT_SECRET) first.",
					common.ErrMissingConfig)
			}
			addr, _ := cmd.Flags().GetString("callback-addr")

			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				TokenFile:    cfg.TokenFile,
				CallbackAddr: addr,
			}, slog.Default())
			if err != nil {
				return err
			}
			if token.RefreshToken == "" {
				writeLine(cmd.OutOrStdout(), cli.FormatWarning("Google did not return a refresh token; revoke access and try again."))
				return nil
			}
			writeLine(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets authorized. Token saved to "+cfg.TokenFile))
			return nil
		},
	}
	cmd.Flags().String("callback-addr", sheets.DefaultCallbackAddr, "local address for the OAuth2 redirect")
	return cmd
}
