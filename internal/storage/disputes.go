package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/google/uuid"
)

// SaveDispute records a dispute against a seller.
func (s *SQLiteStorage) SaveDispute(ctx context.Context, dispute *model.Dispute) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDispute(dispute); err != nil {
		return err
	}

	if dispute.ID == "" {
		dispute.ID = uuid.NewString()
	}
	if dispute.OpenedAt.IsZero() {
		dispute.OpenedAt = time.Now()
	}
	dispute.OpenedAt = dbTime(dispute.OpenedAt)

	var resolvedAt any
	if dispute.ResolvedAt != nil {
		t := dbTime(*dispute.ResolvedAt)
		dispute.ResolvedAt = &t
		resolvedAt = t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO disputes (id, seller_id, sale_id, reason, status, opened_at, resolved_at)
		VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reason = excluded.reason,
			status = excluded.status,
			resolved_at = excluded.resolved_at
	`, dispute.ID, dispute.SellerID, dispute.SaleID, dispute.Reason, string(dispute.Status), dispute.OpenedAt, resolvedAt)
	if err != nil {
		return fmt.Errorf("failed to save dispute: %w", err)
	}
	return nil
}

// ResolveDispute closes an open dispute.
func (s *SQLiteStorage) ResolveDispute(ctx context.Context, id string, resolvedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE disputes SET status = ?, resolved_at = ?
		WHERE id = ? AND status = ?
	`, string(model.DisputeStatusResolved), dbTime(resolvedAt), id, string(model.DisputeStatusOpen))
	if err != nil {
		return fmt.Errorf("failed to resolve dispute: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check resolved dispute: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("open dispute %s: %w", id, common.ErrNotFound)
	}
	return nil
}
