package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStorage creates a migrated file-backed database.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func createTestSeller(t *testing.T, store *SQLiteStorage, id string, createdAt time.Time) *model.Seller {
	t.Helper()
	seller := &model.Seller{
		ID:          id,
		DisplayName: "Seller " + id,
		Verified:    true,
		CreatedAt:   createdAt,
	}
	require.NoError(t, store.SaveSeller(context.Background(), seller))
	return seller
}

func testSale(sellerID string, soldAt time.Time, grossCents int64, status model.SaleStatus) model.Sale {
	platform := grossCents * 375 / 10000
	processor := grossCents*29/1000 + 30
	return model.Sale{
		SellerID: sellerID,
		Title:    "Amazing Spider-Man #300",
		Status:   status,
		SoldAt:   soldAt,
		Fees: model.FeeBreakdown{
			GrossAmountCents:  grossCents,
			PlatformFeeCents:  platform,
			ProcessorFeeCents: processor,
			NetCents:          grossCents - platform - processor,
		},
	}
}

func TestNewSQLiteStorage_InMemory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx))

	var version int
	require.NoError(t, store.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version))
	assert.Equal(t, ExpectedSchemaVersion, version)
}

func TestMigrate_NilContext(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	//nolint:staticcheck // testing nil context handling
	err := store.Migrate(nil)
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestSchemaVersion(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	require.NoError(t, store.Migrate(ctx))
	version, err = store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)
}
