package model

import "time"

// FeeBreakdown splits a sale's gross amount into fees and seller proceeds.
// PlatformFeeCents + ProcessorFeeCents + NetCents always equals GrossAmountCents.
type FeeBreakdown struct {
	GrossAmountCents  int64 `json:"gross_amount_cents" yaml:"gross_amount_cents"`
	PlatformFeeCents  int64 `json:"platform_fee_cents" yaml:"platform_fee_cents"`
	ProcessorFeeCents int64 `json:"processor_fee_cents" yaml:"processor_fee_cents"`
	NetCents          int64 `json:"net_cents" yaml:"net_cents"`
}

// TotalFeesCents returns platform plus processor fees.
func (f FeeBreakdown) TotalFeesCents() int64 {
	return f.PlatformFeeCents + f.ProcessorFeeCents
}

// SaleStatus is the lifecycle state of a sale.
type SaleStatus string

// Sale statuses.
const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusCancelled SaleStatus = "cancelled"
)

// Sale is a completed or in-flight marketplace transaction.
type Sale struct {
	SoldAt   time.Time    `json:"sold_at" yaml:"sold_at"`
	ID       string       `json:"id" yaml:"id"`
	SellerID string       `json:"seller_id" yaml:"seller_id"`
	Title    string       `json:"title" yaml:"title"`
	Status   SaleStatus   `json:"status" yaml:"status"`
	Fees     FeeBreakdown `json:"fees" yaml:"fees"`
}

// Seller is a marketplace account that lists items.
type Seller struct {
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
	CustomFeeRate  *float64  `json:"custom_fee_rate,omitempty" yaml:"custom_fee_rate,omitempty"`
	ID             string    `json:"id" yaml:"id"`
	DisplayName    string    `json:"display_name" yaml:"display_name"`
	Verified       bool      `json:"verified" yaml:"verified"`
	ManualOverride bool      `json:"manual_override" yaml:"manual_override"`
}

// DisputeStatus is the lifecycle state of a dispute.
type DisputeStatus string

// Dispute statuses.
const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)

// Dispute is a buyer complaint raised against a seller.
type Dispute struct {
	OpenedAt   time.Time     `json:"opened_at" yaml:"opened_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	ID         string        `json:"id" yaml:"id"`
	SellerID   string        `json:"seller_id" yaml:"seller_id"`
	SaleID     string        `json:"sale_id,omitempty" yaml:"sale_id,omitempty"`
	Reason     string        `json:"reason,omitempty" yaml:"reason,omitempty"`
	Status     DisputeStatus `json:"status" yaml:"status"`
}

// EligibilitySnapshot is the account history a trade-eligibility decision is made from.
type EligibilitySnapshot struct {
	CompletedTransactions int  `json:"completed_transactions" yaml:"completed_transactions"`
	AccountAgeDays        int  `json:"account_age_days" yaml:"account_age_days"`
	IsVerified            bool `json:"is_verified" yaml:"is_verified"`
	HasRecentDispute      bool `json:"has_recent_dispute" yaml:"has_recent_dispute"`
	ManualOverride        bool `json:"manual_override" yaml:"manual_override"`
}
