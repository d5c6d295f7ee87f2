// Package service defines the interfaces shared between application layers.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/longbox/internal/model"
)

// SaleFilter narrows sale queries.
type SaleFilter struct {
	Start    *time.Time
	End      *time.Time
	SellerID string
	Status   model.SaleStatus
	Limit    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Seller operations
	SaveSeller(ctx context.Context, seller *model.Seller) error
	GetSeller(ctx context.Context, id string) (*model.Seller, error)
	ListSellers(ctx context.Context) ([]model.Seller, error)

	// Sale operations
	SaveSale(ctx context.Context, sale *model.Sale) error
	SaveSales(ctx context.Context, sales []model.Sale) error
	ListSales(ctx context.Context, filter SaleFilter) ([]model.Sale, error)

	// Dispute operations
	SaveDispute(ctx context.Context, dispute *model.Dispute) error
	ResolveDispute(ctx context.Context, id string, resolvedAt time.Time) error

	// Eligibility
	GetEligibilitySnapshot(ctx context.Context, sellerID string, asOf time.Time, disputeWindow time.Duration) (model.EligibilitySnapshot, error)

	// Verified match cache
	SaveVerifiedMatch(ctx context.Context, match *model.VerifiedMatch) error
	GetVerifiedMatch(ctx context.Context, hash string) (*model.VerifiedMatch, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// MatchCache is the subset of Storage the scanner needs.
type MatchCache interface {
	SaveVerifiedMatch(ctx context.Context, match *model.VerifiedMatch) error
	GetVerifiedMatch(ctx context.Context, hash string) (*model.VerifiedMatch, error)
}
