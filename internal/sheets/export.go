package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/longbox/internal/ledger"
	"github.com/Veraticus/longbox/internal/service"
)

// BuildReport loads a seller's sales for year and summarizes them.
func BuildReport(ctx context.Context, store service.Storage, sellerID string, year int) (Report, error) {
	seller, err := store.GetSeller(ctx, sellerID)
	if err != nil {
		return Report{}, err
	}

	start, end := ledger.YearRange(year)
	sales, err := store.ListSales(ctx, service.SaleFilter{
		SellerID: sellerID,
		Start:    &start,
		End:      &end,
	})
	if err != nil {
		return Report{}, fmt.Errorf("failed to load sales: %w", err)
	}

	return Report{
		Seller:      *seller,
		Year:        year,
		Sales:       sales,
		Summary:     ledger.Summarize(sales),
		GeneratedAt: time.Now(),
	}, nil
}

// Export builds a seller's report for year and hands it to writer.
func Export(ctx context.Context, store service.Storage, writer ReportWriter, sellerID string, year int) (Report, error) {
	report, err := BuildReport(ctx, store, sellerID, year)
	if err != nil {
		return Report{}, err
	}
	if err := writer.Write(ctx, report); err != nil {
		return Report{}, fmt.Errorf("failed to write report: %w", err)
	}
	return report, nil
}
