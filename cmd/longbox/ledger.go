package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/ledger"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/spf13/cobra"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Import and summarize sales",
	}

	cmd.AddCommand(ledgerImportCmd())
	cmd.AddCommand(ledgerSummaryCmd())

	return cmd
}

func ledgerImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <csv-file>",
		Short: "Import sales from a CSV export",
		Long: `Import sales from a CSV file with the columns
seller_id,title,gross,sold_at and an optional status column
(pending, completed, cancelled; default completed).

Each sale is priced with the seller's custom rate or the configured
schedule. Rows that cannot be parsed are skipped and listed. Importing the
same file twice updates the existing sales instead of duplicating them.`,
		Args: cobra.ExactArgs(1),
		RunE: runLedgerImport,
	}
	cmd.Flags().Int("batch-size", ledger.DefaultBatchSize, "sales written per transaction")
	return cmd
}

func runLedgerImport(cmd *cobra.Command, args []string) error {
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
	ctx := handler.HandleInterrupts(cmd.Context(), true)

	f, err := os.Open(args[0]) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	calc, err := newCalculator()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	result, err := ledger.ImportCSV(ctx, f, store, calc, ledger.ImportOptions{
		BatchSize: batchSize,
		Logger:    slog.Default(),
		NewProgress: func(total int) ledger.Progress {
			return cli.NewProgressBar(cmd.ErrOrStderr(), total, "Importing sales...")
		},
	})
	if err != nil {
		if handler.WasInterrupted() {
			return fmt.Errorf("import interrupted after %d sales", result.Imported)
		}
		return err
	}

	out := cmd.OutOrStdout()
	writeLine(out, "")
	writeLine(out, cli.FormatSuccess(fmt.Sprintf("Imported %d sales", result.Imported)))
	if len(result.Skipped) > 0 {
		writeLine(out, cli.FormatWarning(fmt.Sprintf("Skipped %d rows:", len(result.Skipped))))
		for _, rowErr := range result.Skipped {
			writeLine(out, "  "+cli.SubtleStyle.Render(rowErr.Error()))
		}
	}
	return nil
}

func ledgerSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary <seller-id>",
		Short: "Summarize a seller's sales by month",
		Args:  cobra.ExactArgs(1),
		RunE:  runLedgerSummary,
	}
	cmd.Flags().Int("year", time.Now().Year(), "tax year")
	addOutputFlag(cmd)
	return cmd
}

func runLedgerSummary(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	year, _ := cmd.Flags().GetInt("year")

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	seller, err := store.GetSeller(ctx, args[0])
	if err != nil {
		return err
	}

	start, end := ledger.YearRange(year)
	sales, err := store.ListSales(ctx, service.SaleFilter{SellerID: seller.ID, Start: &start, End: &end})
	if err != nil {
		return fmt.Errorf("failed to load sales: %w", err)
	}
	summary := ledger.Summarize(sales)

	return writeOutput(cmd, summary, func(w io.Writer) error {
		writeLine(w, cli.FormatTitle(fmt.Sprintf("%s %s - %d", cli.ChartIcon, seller.DisplayName, year)))
		if len(summary.Months) == 0 {
			writeLine(w, cli.FormatInfo("No completed sales in this period."))
			return nil
		}

		rows := make([][]string, 0, len(summary.Months)+1)
		for _, m := range summary.Months {
			rows = append(rows, totalsRow(m.Month, m.Totals))
		}
		rows = append(rows, totalsRow("Total", summary.Totals))
		writeLine(w, cli.RenderTable([]string{"Month", "Sales", "Gross", "Platform", "Processor", "Net"}, rows))

		if summary.Pending > 0 || summary.Cancelled > 0 {
			writeLine(w, cli.SubtleStyle.Render(fmt.Sprintf("%d pending and %d cancelled sales not included", summary.Pending, summary.Cancelled)))
		}
		return nil
	})
}

func totalsRow(label string, t ledger.Totals) []string {
	return []string{
		label,
		strconv.Itoa(t.Sales),
		fees.FormatCents(t.GrossCents),
		fees.FormatCents(t.PlatformFeeCents),
		fees.FormatCents(t.ProcessorFeeCents),
		fees.FormatCents(t.NetCents),
	}
}
