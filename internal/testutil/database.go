// Package testutil provides shared test fixtures for longbox packages.
// It offers an in-memory database with seeded sellers so tests outside the
// storage package can exercise real persistence.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/Veraticus/longbox/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
	Sellers []model.Seller
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Sellers        []model.Seller
	Sales          []model.Sale
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database seeded with sellers.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.TrustedSeller("s1"))
func SetupTestDB(t *testing.T, sellers ...model.Seller) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Sellers: sellers})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	sellers := make([]model.Seller, 0, len(opts.Sellers))
	for _, seller := range opts.Sellers {
		if err := store.SaveSeller(ctx, &seller); err != nil {
			t.Fatalf("failed to seed seller %q: %v", seller.DisplayName, err)
		}
		sellers = append(sellers, seller)
	}

	if len(opts.Sales) > 0 {
		if err := store.SaveSales(ctx, opts.Sales); err != nil {
			t.Fatalf("failed to seed sales: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		Sellers: sellers,
		t:       t,
	}
}

// MustGetSeller returns the seeded seller with the given ID or fails the test.
func (db *TestDB) MustGetSeller(id string) model.Seller {
	db.t.Helper()
	for _, seller := range db.Sellers {
		if seller.ID == id {
			return seller
		}
	}
	db.t.Fatalf("seller %q not found in test data", id)
	return model.Seller{}
}
