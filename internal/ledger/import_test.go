package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/Veraticus/longbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProgress struct {
	total int
	ticks int
}

func (p *countingProgress) Add(n int) error {
	p.ticks += n
	return nil
}

func setupLedgerDB(t *testing.T) *testutil.TestDB {
	t.Helper()
	discounted := testutil.TrustedSeller("vip")
	rate := 0.02
	discounted.CustomFeeRate = &rate
	return testutil.SetupTestDB(t, testutil.TrustedSeller("s1"), discounted)
}

func defaultCalculator(t *testing.T) *fees.Calculator {
	t.Helper()
	calc, err := fees.NewCalculator(fees.DefaultSchedule())
	require.NoError(t, err)
	return calc
}

func TestImportCSV(t *testing.T) {
	db := setupLedgerDB(t)
	ctx := context.Background()

	csvData := `seller_id,title,gross,sold_at,status
s1,Amazing Spider-Man #300,100.00,2024-01-15,completed
vip,Saga #1,"$100.00",2024-02-01T10:00:00Z,
s1,Hellboy #1,19.99,2024-02-03,pending
ghost,Watchmen #1,50,2024-02-04,
s1,Bad Amount,abc,2024-02-05,
s1,Bad Date,10,yesterday,
s1,Bad Status,10,2024-02-06,shipped
s1,Free Comic,0,2024-02-07,
`
	progress := &countingProgress{}
	result, err := ImportCSV(ctx, strings.NewReader(csvData), db.Storage, defaultCalculator(t), ImportOptions{
		BatchSize: 2,
		NewProgress: func(total int) Progress {
			progress.total = total
			return progress
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	require.Len(t, result.Skipped, 5)
	assert.Equal(t, 5, result.Skipped[0].Line)
	assert.ErrorIs(t, result.Skipped[0], common.ErrNotFound)
	assert.ErrorIs(t, result.Skipped[1], common.ErrInvalidAmount)
	assert.ErrorIs(t, result.Skipped[4], common.ErrInvalidAmount)
	assert.Equal(t, 8, progress.total)
	assert.Equal(t, 8, progress.ticks)

	sales, err := db.Storage.ListSales(ctx, service.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 3)

	assert.Equal(t, model.FeeBreakdown{GrossAmountCents: 10000, PlatformFeeCents: 375, ProcessorFeeCents: 320, NetCents: 9305}, sales[0].Fees)
	assert.Equal(t, model.FeeBreakdown{GrossAmountCents: 10000, PlatformFeeCents: 200, ProcessorFeeCents: 320, NetCents: 9480}, sales[1].Fees, "seller's custom rate applies")
	assert.Equal(t, model.SaleStatusPending, sales[2].Status)
	assert.True(t, sales[1].SoldAt.Equal(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)))
}

func TestImportCSV_ReimportIsIdempotent(t *testing.T) {
	db := setupLedgerDB(t)
	ctx := context.Background()
	csvData := "seller_id,title,gross,sold_at\ns1,Saga #1,10,2024-03-01\n"

	for i := 0; i < 2; i++ {
		result, err := ImportCSV(ctx, strings.NewReader(csvData), db.Storage, defaultCalculator(t), ImportOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported)
	}

	sales, err := db.Storage.ListSales(ctx, service.SaleFilter{SellerID: "s1"})
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestImportCSV_IdenticalRowsAreDistinctSales(t *testing.T) {
	db := setupLedgerDB(t)
	ctx := context.Background()
	csvData := `seller_id,title,gross,sold_at
s1,Saga #1,5.00,2024-03-01
s1,Saga #1,5.00,2024-03-01
s1,Saga #1,5.00,2024-03-01
`

	for i := 0; i < 2; i++ {
		result, err := ImportCSV(ctx, strings.NewReader(csvData), db.Storage, defaultCalculator(t), ImportOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, result.Imported)
		assert.Empty(t, result.Skipped)

		sales, err := db.Storage.ListSales(ctx, service.SaleFilter{SellerID: "s1"})
		require.NoError(t, err)
		assert.Len(t, sales, 3, "import %d", i+1)

		snapshot, err := db.Storage.GetEligibilitySnapshot(ctx, "s1", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 72*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 3, snapshot.CompletedTransactions)
	}
}

func TestImportCSV_HeaderErrors(t *testing.T) {
	db := setupLedgerDB(t)
	calc := defaultCalculator(t)

	_, err := ImportCSV(context.Background(), strings.NewReader("seller_id,title,sold_at\n"), db.Storage, calc, ImportOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "gross")

	_, err = ImportCSV(context.Background(), strings.NewReader(""), db.Storage, calc, ImportOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestImportCSV_Canceled(t *testing.T) {
	db := setupLedgerDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ImportCSV(ctx, strings.NewReader("seller_id,title,gross,sold_at\ns1,Saga,10,2024-03-01\n"), db.Storage, defaultCalculator(t), ImportOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSaleID_Deterministic(t *testing.T) {
	soldAt := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := saleID("s1", "Saga", 1000, soldAt, 0)
	assert.Equal(t, a, saleID("s1", "Saga", 1000, soldAt.In(time.FixedZone("EST", -5*3600)), 0))
	assert.NotEqual(t, a, saleID("s1", "Saga", 1001, soldAt, 0))

	second := saleID("s1", "Saga", 1000, soldAt, 1)
	assert.NotEqual(t, a, second)
	assert.Equal(t, second, saleID("s1", "Saga", 1000, soldAt, 1))
	assert.NotEqual(t, second, saleID("s1", "Saga", 1000, soldAt, 2))
}
