package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStorage_SellerRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	rate := 0.02
	seller := &model.Seller{
		DisplayName:   "Longbox Comics",
		CustomFeeRate: &rate,
		CreatedAt:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveSeller(ctx, seller))
	require.NotEmpty(t, seller.ID, "ID should be generated")

	got, err := store.GetSeller(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "Longbox Comics", got.DisplayName)
	require.NotNil(t, got.CustomFeeRate)
	assert.InDelta(t, 0.02, *got.CustomFeeRate, 1e-12)
	assert.False(t, got.Verified)
	assert.True(t, got.CreatedAt.Equal(seller.CreatedAt))

	seller.Verified = true
	seller.CustomFeeRate = nil
	require.NoError(t, store.SaveSeller(ctx, seller))

	got, err = store.GetSeller(ctx, seller.ID)
	require.NoError(t, err)
	assert.True(t, got.Verified)
	assert.Nil(t, got.CustomFeeRate)
}

func TestSQLiteStorage_GetSellerNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetSeller(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_SaveSellerValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	assert.ErrorIs(t, store.SaveSeller(ctx, nil), ErrNilParameter)
	assert.ErrorIs(t, store.SaveSeller(ctx, &model.Seller{}), ErrInvalidSeller)

	bad := 1.5
	err := store.SaveSeller(ctx, &model.Seller{DisplayName: "x", CustomFeeRate: &bad})
	assert.ErrorIs(t, err, ErrInvalidSeller)
	assert.ErrorIs(t, err, common.ErrInvalidRate)
}

func TestSQLiteStorage_ListSellers(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for _, name := range []string{"Zed's", "Alpha", "Mid"} {
		require.NoError(t, store.SaveSeller(ctx, &model.Seller{DisplayName: name}))
	}

	sellers, err := store.ListSellers(ctx)
	require.NoError(t, err)
	require.Len(t, sellers, 3)
	assert.Equal(t, "Alpha", sellers[0].DisplayName)
	assert.Equal(t, "Zed's", sellers[2].DisplayName)
}
