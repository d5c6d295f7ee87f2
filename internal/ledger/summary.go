package ledger

import (
	"sort"
	"time"

	"github.com/Veraticus/longbox/internal/model"
)

// Totals aggregates completed sales.
type Totals struct {
	Sales             int   `json:"sales" yaml:"sales"`
	GrossCents        int64 `json:"gross_cents" yaml:"gross_cents"`
	PlatformFeeCents  int64 `json:"platform_fee_cents" yaml:"platform_fee_cents"`
	ProcessorFeeCents int64 `json:"processor_fee_cents" yaml:"processor_fee_cents"`
	NetCents          int64 `json:"net_cents" yaml:"net_cents"`
}

func (t *Totals) add(f model.FeeBreakdown) {
	t.Sales++
	t.GrossCents += f.GrossAmountCents
	t.PlatformFeeCents += f.PlatformFeeCents
	t.ProcessorFeeCents += f.ProcessorFeeCents
	t.NetCents += f.NetCents
}

// MonthRow is one calendar month of completed sales.
type MonthRow struct {
	Month string `json:"month" yaml:"month"`
	Totals
}

// Summary is a seller's ledger for a period.
type Summary struct {
	Months    []MonthRow `json:"months" yaml:"months"`
	Totals    Totals     `json:"totals" yaml:"totals"`
	Pending   int        `json:"pending" yaml:"pending"`
	Cancelled int        `json:"cancelled" yaml:"cancelled"`
}

// Summarize totals completed sales overall and per month (UTC).
// Pending and cancelled sales are only counted.
func Summarize(sales []model.Sale) Summary {
	var summary Summary
	months := make(map[string]*MonthRow)

	for _, sale := range sales {
		switch sale.Status {
		case model.SaleStatusPending:
			summary.Pending++
			continue
		case model.SaleStatusCancelled:
			summary.Cancelled++
			continue
		}

		key := sale.SoldAt.UTC().Format("2006-01")
		row, ok := months[key]
		if !ok {
			row = &MonthRow{Month: key}
			months[key] = row
		}
		row.add(sale.Fees)
		summary.Totals.add(sale.Fees)
	}

	summary.Months = make([]MonthRow, 0, len(months))
	for _, row := range months {
		summary.Months = append(summary.Months, *row)
	}
	sort.Slice(summary.Months, func(i, j int) bool {
		return summary.Months[i].Month < summary.Months[j].Month
	})

	return summary
}

// YearRange returns the [start, end) bounds of a calendar year in UTC.
func YearRange(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}
