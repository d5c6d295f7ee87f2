package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/google/uuid"
)

// SaveSale stores a single sale.
func (s *SQLiteStorage) SaveSale(ctx context.Context, sale *model.Sale) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSale(sale); err != nil {
		return err
	}
	return s.saveSaleTx(ctx, s.db, sale)
}

// SaveSales stores a batch of sales atomically.
func (s *SQLiteStorage) SaveSales(ctx context.Context, sales []model.Sale) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSales(sales); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range sales {
		if err := s.saveSaleTx(ctx, tx, &sales[i]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) saveSaleTx(ctx context.Context, q queryable, sale *model.Sale) error {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	sale.SoldAt = dbTime(sale.SoldAt)

	_, err := q.ExecContext(ctx, `
		INSERT INTO sales (id, seller_id, title, gross_cents, platform_fee_cents, processor_fee_cents, net_cents, status, sold_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			gross_cents = excluded.gross_cents,
			platform_fee_cents = excluded.platform_fee_cents,
			processor_fee_cents = excluded.processor_fee_cents,
			net_cents = excluded.net_cents,
			status = excluded.status,
			sold_at = excluded.sold_at
	`,
		sale.ID,
		sale.SellerID,
		sale.Title,
		sale.Fees.GrossAmountCents,
		sale.Fees.PlatformFeeCents,
		sale.Fees.ProcessorFeeCents,
		sale.Fees.NetCents,
		string(sale.Status),
		sale.SoldAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save sale %s: %w", sale.ID, err)
	}
	return nil
}

// ListSales returns sales matching the filter, oldest first.
func (s *SQLiteStorage) ListSales(ctx context.Context, filter service.SaleFilter) ([]model.Sale, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.End, *filter.Start)
	}

	var conditions []string
	var args []any
	if filter.SellerID != "" {
		conditions = append(conditions, "seller_id = ?")
		args = append(args, filter.SellerID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Start != nil {
		conditions = append(conditions, "sold_at >= ?")
		args = append(args, dbTime(*filter.Start))
	}
	if filter.End != nil {
		conditions = append(conditions, "sold_at < ?")
		args = append(args, dbTime(*filter.End))
	}

	query := `SELECT id, seller_id, title, gross_cents, platform_fee_cents, processor_fee_cents, net_cents, status, sold_at FROM sales`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY sold_at, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sales []model.Sale
	for rows.Next() {
		var sale model.Sale
		var status string
		if err := rows.Scan(
			&sale.ID,
			&sale.SellerID,
			&sale.Title,
			&sale.Fees.GrossAmountCents,
			&sale.Fees.PlatformFeeCents,
			&sale.Fees.ProcessorFeeCents,
			&sale.Fees.NetCents,
			&status,
			&sale.SoldAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sale.Status = model.SaleStatus(status)
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}
