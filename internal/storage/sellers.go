package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/google/uuid"
)

// SaveSeller creates or updates a seller. A missing ID is generated.
func (s *SQLiteStorage) SaveSeller(ctx context.Context, seller *model.Seller) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSeller(seller); err != nil {
		return err
	}

	if seller.ID == "" {
		seller.ID = uuid.NewString()
	}
	if seller.CreatedAt.IsZero() {
		seller.CreatedAt = time.Now()
	}
	seller.CreatedAt = dbTime(seller.CreatedAt)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sellers (id, display_name, verified, custom_fee_rate, manual_override, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			verified = excluded.verified,
			custom_fee_rate = excluded.custom_fee_rate,
			manual_override = excluded.manual_override
	`, seller.ID, seller.DisplayName, seller.Verified, nullableFloat(seller.CustomFeeRate), seller.ManualOverride, seller.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save seller: %w", err)
	}
	return nil
}

// GetSeller retrieves a seller by ID.
func (s *SQLiteStorage) GetSeller(ctx context.Context, id string) (*model.Seller, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getSellerTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getSellerTx(ctx context.Context, q queryable, id string) (*model.Seller, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, display_name, verified, custom_fee_rate, manual_override, created_at
		FROM sellers
		WHERE id = ?
	`, id)

	seller, err := scanSeller(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("seller %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return seller, nil
}

// ListSellers returns all sellers ordered by display name.
func (s *SQLiteStorage) ListSellers(ctx context.Context) ([]model.Seller, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, verified, custom_fee_rate, manual_override, created_at
		FROM sellers
		ORDER BY display_name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sellers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sellers []model.Seller
	for rows.Next() {
		seller, err := scanSeller(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		sellers = append(sellers, *seller)
	}
	return sellers, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSeller(row scanner) (*model.Seller, error) {
	var seller model.Seller
	var rate sql.NullFloat64
	if err := row.Scan(
		&seller.ID,
		&seller.DisplayName,
		&seller.Verified,
		&rate,
		&seller.ManualOverride,
		&seller.CreatedAt,
	); err != nil {
		return nil, err
	}
	if rate.Valid {
		r := rate.Float64
		seller.CustomFeeRate = &r
	}
	return &seller, nil
}

func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// dbTime normalizes timestamps so stored values compare correctly as text.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
