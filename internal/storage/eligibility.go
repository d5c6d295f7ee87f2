package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/longbox/internal/model"
)

// GetEligibilitySnapshot assembles a seller's trading history as of asOf.
// A dispute counts as recent when it is still open and was opened within
// disputeWindow of asOf.
func (s *SQLiteStorage) GetEligibilitySnapshot(ctx context.Context, sellerID string, asOf time.Time, disputeWindow time.Duration) (model.EligibilitySnapshot, error) {
	if err := validateContext(ctx); err != nil {
		return model.EligibilitySnapshot{}, err
	}
	if err := validateString(sellerID, "sellerID"); err != nil {
		return model.EligibilitySnapshot{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.EligibilitySnapshot{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seller, err := s.getSellerTx(ctx, tx, sellerID)
	if err != nil {
		return model.EligibilitySnapshot{}, err
	}

	var completed int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sales WHERE seller_id = ? AND status = ?
	`, sellerID, string(model.SaleStatusCompleted)).Scan(&completed); err != nil {
		return model.EligibilitySnapshot{}, fmt.Errorf("failed to count completed sales: %w", err)
	}

	var recentDispute bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM disputes
			WHERE seller_id = ? AND status = ? AND opened_at >= ?
		)
	`, sellerID, string(model.DisputeStatusOpen), dbTime(asOf.Add(-disputeWindow))).Scan(&recentDispute); err != nil {
		return model.EligibilitySnapshot{}, fmt.Errorf("failed to check disputes: %w", err)
	}

	return model.EligibilitySnapshot{
		CompletedTransactions: completed,
		AccountAgeDays:        accountAgeDays(seller.CreatedAt, asOf),
		IsVerified:            seller.Verified,
		HasRecentDispute:      recentDispute,
		ManualOverride:        seller.ManualOverride,
	}, nil
}

// accountAgeDays counts whole days between created and asOf.
func accountAgeDays(created, asOf time.Time) int {
	if asOf.Before(created) {
		return 0
	}
	return int(asOf.Sub(created) / (24 * time.Hour))
}
