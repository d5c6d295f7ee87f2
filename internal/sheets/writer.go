package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/fees"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// reportColumns is the number of columns in the sale detail table.
const reportColumns = 7

var _ ReportWriter = (*Writer)(nil)

// Writer publishes reports to Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return NewWriterWithService(service, config, logger), nil
}

// NewWriterWithService wraps an already configured Sheets service.
func NewWriterWithService(service *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}
}

// Write replaces the spreadsheet contents with report.
func (w *Writer) Write(ctx context.Context, report Report) error {
	w.logger.Info("starting report generation",
		"seller", report.Seller.ID,
		"year", report.Year,
		"sales", len(report.Sales))

	spreadsheetID, err := w.getOrCreateSpreadsheet(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	if clearErr := w.clearSheet(ctx, spreadsheetID); clearErr != nil {
		return fmt.Errorf("failed to clear sheet: %w", clearErr)
	}

	values := prepareReportData(report)

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, len(values))
		}, retryOpts)
		if err != nil {
			// Unformatted data is still a usable report.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report generation completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig(OAuth2Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
		}).TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet gets the configured spreadsheet or creates a new one.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context, report Report) (string, error) {
	if w.config.SpreadsheetID != "" {
		_, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		return w.config.SpreadsheetID, nil
	}

	name := w.config.SpreadsheetName
	if name == "" {
		name = DefaultSpreadsheetName
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    fmt.Sprintf("%s - %s %d", name, report.Seller.DisplayName, report.Year),
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: "Sales",
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	return created.SpreadsheetId, nil
}

// clearSheet clears all data from the sheet.
func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// prepareReportData lays out the summary, monthly breakdown, and sale rows.
func prepareReportData(report Report) [][]any {
	summary := report.Summary
	estimatedRows := 16 + len(summary.Months) + len(report.Sales)
	values := make([][]any, 0, estimatedRows)

	values = append(values,
		[]any{
			"Seller Tax Report",
			fmt.Sprintf("%s (%s) - %d", report.Seller.DisplayName, report.Seller.ID, report.Year),
		},
		[]any{},
		[]any{"Summary"},
		[]any{"Completed Sales", summary.Totals.Sales},
		[]any{"Gross Sales", dollars(summary.Totals.GrossCents)},
		[]any{"Platform Fees", dollars(summary.Totals.PlatformFeeCents)},
		[]any{"Processor Fees", dollars(summary.Totals.ProcessorFeeCents)},
		[]any{"Net Payout", dollars(summary.Totals.NetCents)},
		[]any{"Pending / Cancelled", fmt.Sprintf("%d / %d", summary.Pending, summary.Cancelled)},
		[]any{},
		[]any{"Monthly Breakdown"},
		[]any{"Month", "Sales", "Gross", "Platform Fees", "Processor Fees", "Net"},
	)

	for _, month := range summary.Months {
		values = append(values, []any{
			month.Month,
			month.Sales,
			dollars(month.GrossCents),
			dollars(month.PlatformFeeCents),
			dollars(month.ProcessorFeeCents),
			dollars(month.NetCents),
		})
	}

	values = append(values,
		[]any{},
		[]any{"Sale Details"},
		[]any{"Date", "Title", "Status", "Gross", "Platform Fee", "Processor Fee", "Net"},
	)

	sales := append(report.Sales[:0:0], report.Sales...)
	sort.SliceStable(sales, func(i, j int) bool {
		return sales[i].SoldAt.Before(sales[j].SoldAt)
	})

	for _, sale := range sales {
		values = append(values, []any{
			sale.SoldAt.Format("2006-01-02"),
			sale.Title,
			string(sale.Status),
			dollars(sale.Fees.GrossAmountCents),
			dollars(sale.Fees.PlatformFeeCents),
			dollars(sale.Fees.ProcessorFeeCents),
			dollars(sale.Fees.NetCents),
		})
	}

	return values
}

// writeData writes the data to the spreadsheet in batches.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("A%d", i+1)
		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds headings and formats money columns as currency.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, totalRows int) error {
	currency := &sheets.CellData{
		UserEnteredFormat: &sheets.CellFormat{
			NumberFormat: &sheets.NumberFormat{
				Type:    "CURRENCY",
				Pattern: "$#,##0.00",
			},
		},
	}

	requests := []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   2,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold:     true,
							FontSize: 16,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    2,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat: &sheets.TextFormat{
							Bold: true,
						},
					},
				},
				Fields: "userEnteredFormat.textFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    4,
					EndRowIndex:      8,
					StartColumnIndex: 1,
					EndColumnIndex:   2,
				},
				Cell:   currency,
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          0,
					StartRowIndex:    12,
					EndRowIndex:      int64(totalRows),
					StartColumnIndex: 2,
					EndColumnIndex:   reportColumns,
				},
				Cell:   currency,
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    0,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   reportColumns,
				},
			},
		},
	}

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}

// FormatTotals renders summary totals for terminal output.
func FormatTotals(report Report) map[string]string {
	t := report.Summary.Totals
	return map[string]string{
		"gross":          fees.FormatCents(t.GrossCents),
		"platform_fees":  fees.FormatCents(t.PlatformFeeCents),
		"processor_fees": fees.FormatCents(t.ProcessorFeeCents),
		"net":            fees.FormatCents(t.NetCents),
	}
}
