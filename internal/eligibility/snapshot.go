package eligibility

import "github.com/Veraticus/longbox/internal/model"

// SnapshotRecord is an eligibility snapshot as it arrives from an external
// source, where any field may be missing.
type SnapshotRecord struct {
	CompletedTransactions *int  `json:"completed_transactions"`
	AccountAgeDays        *int  `json:"account_age_days"`
	IsVerified            *bool `json:"is_verified"`
	HasRecentDispute      *bool `json:"has_recent_dispute"`
	ManualOverride        *bool `json:"manual_override"`
}

// Snapshot converts the record, failing closed: every missing field takes
// the value that fails its check.
func (r SnapshotRecord) Snapshot() model.EligibilitySnapshot {
	snapshot := model.EligibilitySnapshot{HasRecentDispute: true}

	if r.CompletedTransactions != nil {
		snapshot.CompletedTransactions = *r.CompletedTransactions
	}
	if r.AccountAgeDays != nil {
		snapshot.AccountAgeDays = *r.AccountAgeDays
	}
	if r.IsVerified != nil {
		snapshot.IsVerified = *r.IsVerified
	}
	if r.HasRecentDispute != nil {
		snapshot.HasRecentDispute = *r.HasRecentDispute
	}
	if r.ManualOverride != nil {
		snapshot.ManualOverride = *r.ManualOverride
	}

	return snapshot
}
