package sheets

import (
	"context"
	"time"

	"github.com/Veraticus/longbox/internal/ledger"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/shopspring/decimal"
)

// Report is one seller's sales ledger for a tax year.
type Report struct {
	GeneratedAt time.Time
	Seller      model.Seller
	Sales       []model.Sale
	Summary     ledger.Summary
	Year        int
}

// ReportWriter publishes a report somewhere the seller can read it.
type ReportWriter interface {
	Write(ctx context.Context, report Report) error
}

// dollars converts cents into a spreadsheet number.
func dollars(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}
