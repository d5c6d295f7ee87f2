package testutil

import (
	"time"

	"github.com/Veraticus/longbox/internal/model"
)

// TrustedSeller returns a verified seller old enough to trade.
func TrustedSeller(id string) model.Seller {
	return model.Seller{
		ID:          id,
		DisplayName: "Trusted " + id,
		Verified:    true,
		CreatedAt:   time.Now().AddDate(0, -6, 0),
	}
}

// NewSeller returns an unverified seller created today.
func NewSeller(id string) model.Seller {
	return model.Seller{
		ID:          id,
		DisplayName: "New " + id,
		CreatedAt:   time.Now(),
	}
}

// CompletedSale returns a completed sale with a balanced fee breakdown.
// Fees are fixed fractions of gross so tests need no calculator.
func CompletedSale(sellerID string, soldAt time.Time, grossCents int64) model.Sale {
	platform := grossCents / 25
	processor := grossCents/50 + 30
	return model.Sale{
		SellerID: sellerID,
		Title:    "Saga #1",
		Status:   model.SaleStatusCompleted,
		SoldAt:   soldAt,
		Fees: model.FeeBreakdown{
			GrossAmountCents:  grossCents,
			PlatformFeeCents:  platform,
			ProcessorFeeCents: processor,
			NetCents:          grossCents - platform - processor,
		},
	}
}
