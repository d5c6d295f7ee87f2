package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidSeller    = errors.New("invalid seller")
	ErrInvalidSale      = errors.New("invalid sale")
	ErrInvalidDispute   = errors.New("invalid dispute")
	ErrInvalidMatch     = errors.New("invalid verified match")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateSeller(seller *model.Seller) error {
	if seller == nil {
		return fmt.Errorf("%w: seller", ErrNilParameter)
	}
	if strings.TrimSpace(seller.DisplayName) == "" {
		return fmt.Errorf("%w: missing display name", ErrInvalidSeller)
	}
	if seller.CustomFeeRate != nil {
		if err := fees.ValidateRate(*seller.CustomFeeRate); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSeller, err)
		}
	}
	return nil
}

func validateSales(sales []model.Sale) error {
	if sales == nil {
		return fmt.Errorf("%w: sales", ErrNilParameter)
	}
	if len(sales) == 0 {
		return fmt.Errorf("%w: sales", ErrEmptySlice)
	}
	for i := range sales {
		if err := validateSale(&sales[i]); err != nil {
			return fmt.Errorf("sale at index %d: %w", i, err)
		}
	}
	return nil
}

func validateSale(sale *model.Sale) error {
	if sale == nil {
		return fmt.Errorf("%w: sale", ErrNilParameter)
	}
	if strings.TrimSpace(sale.SellerID) == "" {
		return fmt.Errorf("%w: missing seller ID", ErrInvalidSale)
	}
	if strings.TrimSpace(sale.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidSale)
	}
	if sale.SoldAt.IsZero() {
		return fmt.Errorf("%w: missing sold date", ErrInvalidSale)
	}
	f := sale.Fees
	if f.GrossAmountCents <= 0 {
		return fmt.Errorf("%w: gross must be positive", ErrInvalidSale)
	}
	if f.PlatformFeeCents+f.ProcessorFeeCents+f.NetCents != f.GrossAmountCents {
		return fmt.Errorf("%w: fee breakdown does not sum to gross", ErrInvalidSale)
	}
	switch sale.Status {
	case model.SaleStatusPending, model.SaleStatusCompleted, model.SaleStatusCancelled:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidSale, sale.Status)
	}
	return nil
}

func validateDispute(dispute *model.Dispute) error {
	if dispute == nil {
		return fmt.Errorf("%w: dispute", ErrNilParameter)
	}
	if strings.TrimSpace(dispute.SellerID) == "" {
		return fmt.Errorf("%w: missing seller ID", ErrInvalidDispute)
	}
	switch dispute.Status {
	case model.DisputeStatusOpen, model.DisputeStatusResolved:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidDispute, dispute.Status)
	}
	return nil
}

func validateVerifiedMatch(match *model.VerifiedMatch) error {
	if match == nil {
		return fmt.Errorf("%w: match", ErrNilParameter)
	}
	if strings.TrimSpace(match.Hash) == "" {
		return fmt.Errorf("%w: missing hash", ErrInvalidMatch)
	}
	if strings.TrimSpace(match.Match.ExternalID) == "" {
		return fmt.Errorf("%w: missing external ID", ErrInvalidMatch)
	}
	if strings.TrimSpace(match.Match.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidMatch)
	}
	if match.Match.Confidence < 0 || match.Match.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidMatch)
	}
	return nil
}
