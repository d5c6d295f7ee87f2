// Package ledger imports seller sales and summarizes them for tax reporting.
package ledger

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/google/uuid"
)

// DefaultBatchSize is the number of sales written per transaction.
const DefaultBatchSize = 100

// saleNamespace seeds deterministic sale IDs so re-importing a file
// updates rows instead of duplicating them.
var saleNamespace = uuid.MustParse("6f1c9f3e-2b1a-4d7e-9c55-3f0b8a2d4e71")

var requiredColumns = []string{"seller_id", "title", "gross", "sold_at"}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02", "01/02/2006"}

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Progress receives one tick per processed row.
type Progress interface {
	Add(n int) error
}

// ImportOptions tunes an import.
type ImportOptions struct {
	// NewProgress is called with the row count before processing starts.
	NewProgress func(total int) Progress
	Logger      *slog.Logger
	BatchSize   int
}

// RowError describes a row that was skipped.
type RowError struct {
	Err  error
	Line int
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// ImportResult reports what an import did.
type ImportResult struct {
	Skipped  []RowError
	Imported int
}

// ImportCSV reads seller_id,title,gross,sold_at[,status] rows, prices each
// sale with the seller's fee rate, and stores them in batches. Bad rows are
// skipped and reported; storage failures abort the import.
func ImportCSV(ctx context.Context, r io.Reader, store service.Storage, calc *fees.Calculator, opts ImportOptions) (ImportResult, error) {
	var result ImportResult
	if calc == nil {
		return result, fmt.Errorf("fee calculator is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return result, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return result, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}

	columns, err := mapColumns(records[0])
	if err != nil {
		return result, err
	}
	rows := records[1:]

	var progress Progress
	if opts.NewProgress != nil {
		progress = opts.NewProgress(len(rows))
	}

	sellers := make(map[string]*model.Seller)
	// Identical rows are distinct sales; their position among duplicates keeps the IDs apart.
	occurrences := make(map[string]int)
	batch := make([]model.Sale, 0, opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := store.SaveSales(ctx, batch); err != nil {
			return fmt.Errorf("failed to save sales: %w", err)
		}
		result.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for i, record := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		line := i + 2

		sale, err := parseRow(ctx, record, columns, store, calc, sellers)
		if err != nil {
			if isStorageFailure(err) {
				return result, err
			}
			logger.Warn("Skipping ledger row", "line", line, "error", err)
			result.Skipped = append(result.Skipped, RowError{Line: line, Err: err})
		} else {
			base := sale.ID
			if n := occurrences[base]; n > 0 {
				sale.ID = saleID(sale.SellerID, sale.Title, sale.Fees.GrossAmountCents, sale.SoldAt, n)
			}
			occurrences[base]++
			batch = append(batch, sale)
			if len(batch) >= opts.BatchSize {
				if err := flush(); err != nil {
					return result, err
				}
			}
		}

		if progress != nil {
			if err := progress.Add(1); err != nil {
				logger.Warn("Failed to update progress", "error", err)
			}
		}
	}

	if err := flush(); err != nil {
		return result, err
	}

	logger.Info("Ledger import complete",
		"imported", result.Imported,
		"skipped", len(result.Skipped))
	return result, nil
}

type columnIndex map[string]int

func mapColumns(header []string) (columnIndex, error) {
	columns := make(columnIndex, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}
	return columns, nil
}

func (c columnIndex) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// storageError marks failures that should abort the whole import.
type storageError struct{ err error }

func (e storageError) Error() string { return e.err.Error() }
func (e storageError) Unwrap() error { return e.err }

func isStorageFailure(err error) bool {
	var se storageError
	return errors.As(err, &se)
}

func parseRow(ctx context.Context, record []string, columns columnIndex, store service.Storage, calc *fees.Calculator, sellers map[string]*model.Seller) (model.Sale, error) {
	sellerID := columns.get(record, "seller_id")
	title := columns.get(record, "title")
	if sellerID == "" || title == "" {
		return model.Sale{}, fmt.Errorf("seller_id and title are required")
	}

	seller, ok := sellers[sellerID]
	if !ok {
		s, err := store.GetSeller(ctx, sellerID)
		switch {
		case errors.Is(err, common.ErrNotFound):
			// Cache the miss so every row for an unknown seller is skipped cheaply.
			sellers[sellerID] = nil
		case err != nil:
			return model.Sale{}, storageError{err}
		default:
			sellers[sellerID] = s
		}
		seller = sellers[sellerID]
	}
	if seller == nil {
		return model.Sale{}, fmt.Errorf("unknown seller %q: %w", sellerID, common.ErrNotFound)
	}

	gross, err := parseAmount(columns.get(record, "gross"))
	if err != nil {
		return model.Sale{}, err
	}

	soldAt, err := parseDate(columns.get(record, "sold_at"))
	if err != nil {
		return model.Sale{}, err
	}

	status := model.SaleStatusCompleted
	if raw := strings.ToLower(columns.get(record, "status")); raw != "" {
		status = model.SaleStatus(raw)
		switch status {
		case model.SaleStatusPending, model.SaleStatusCompleted, model.SaleStatusCancelled:
		default:
			return model.Sale{}, fmt.Errorf("unknown status %q", raw)
		}
	}

	breakdown, err := calc.Calculate(gross, seller.CustomFeeRate)
	if err != nil {
		return model.Sale{}, err
	}

	return model.Sale{
		ID:       saleID(sellerID, title, breakdown.GrossAmountCents, soldAt, 0),
		SellerID: sellerID,
		Title:    title,
		Status:   status,
		SoldAt:   soldAt,
		Fees:     breakdown,
	}, nil
}

func parseAmount(raw string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(raw)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: gross %q", common.ErrInvalidAmount, raw)
	}
	return amount, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized sold_at date %q", raw)
}

// saleID derives a stable ID from the row contents. occurrence counts earlier
// identical rows in the same file, so re-importing a file yields the same IDs.
func saleID(sellerID, title string, grossCents int64, soldAt time.Time, occurrence int) string {
	parts := []string{
		sellerID,
		title,
		strconv.FormatInt(grossCents, 10),
		soldAt.UTC().Format(time.RFC3339),
	}
	if occurrence > 0 {
		parts = append(parts, strconv.Itoa(occurrence))
	}
	key := strings.Join(parts, "|")
	return uuid.NewSHA1(saleNamespace, []byte(key)).String()
}
