// Package eligibility decides whether a seller account may trade.
package eligibility

import (
	"fmt"
	"time"

	"github.com/Veraticus/longbox/internal/model"
)

// Default thresholds.
const (
	DefaultMinCompletedTransactions = 3
	DefaultMinAccountAgeDays        = 7
	DefaultDisputeWindow            = 30 * 24 * time.Hour
)

// Reason names a failed eligibility check.
type Reason string

// Eligibility check failures.
const (
	ReasonTooFewTransactions Reason = "too_few_transactions"
	ReasonNotVerified        Reason = "not_verified"
	ReasonAccountTooNew      Reason = "account_too_new"
	ReasonRecentDispute      Reason = "recent_dispute"
)

// Policy holds the thresholds an account must meet.
type Policy struct {
	MinCompletedTransactions int           `mapstructure:"min_completed_transactions" json:"min_completed_transactions" yaml:"min_completed_transactions"`
	MinAccountAgeDays        int           `mapstructure:"min_account_age_days" json:"min_account_age_days" yaml:"min_account_age_days"`
	DisputeWindow            time.Duration `mapstructure:"dispute_window" json:"dispute_window" yaml:"dispute_window"`
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinCompletedTransactions: DefaultMinCompletedTransactions,
		MinAccountAgeDays:        DefaultMinAccountAgeDays,
		DisputeWindow:            DefaultDisputeWindow,
	}
}

// Validate rejects negative thresholds.
func (p Policy) Validate() error {
	if p.MinCompletedTransactions < 0 {
		return fmt.Errorf("min completed transactions cannot be negative")
	}
	if p.MinAccountAgeDays < 0 {
		return fmt.Errorf("min account age cannot be negative")
	}
	if p.DisputeWindow <= 0 {
		return fmt.Errorf("dispute window must be positive")
	}
	return nil
}

// Decision is the outcome of an eligibility check.
type Decision struct {
	Reasons    []Reason `json:"reasons,omitempty" yaml:"reasons,omitempty"`
	CanTrade   bool     `json:"can_trade" yaml:"can_trade"`
	Overridden bool     `json:"overridden,omitempty" yaml:"overridden,omitempty"`
}

// Decide evaluates a snapshot and reports every check that failed.
// A manual override allows trading regardless of the other checks.
func (p Policy) Decide(snapshot model.EligibilitySnapshot) Decision {
	if snapshot.ManualOverride {
		return Decision{CanTrade: true, Overridden: true}
	}

	var reasons []Reason
	if snapshot.CompletedTransactions < p.MinCompletedTransactions {
		reasons = append(reasons, ReasonTooFewTransactions)
	}
	if !snapshot.IsVerified {
		reasons = append(reasons, ReasonNotVerified)
	}
	if snapshot.AccountAgeDays < p.MinAccountAgeDays {
		reasons = append(reasons, ReasonAccountTooNew)
	}
	if snapshot.HasRecentDispute {
		reasons = append(reasons, ReasonRecentDispute)
	}

	return Decision{CanTrade: len(reasons) == 0, Reasons: reasons}
}

// Evaluate applies the default policy.
func Evaluate(snapshot model.EligibilitySnapshot) bool {
	return DefaultPolicy().Decide(snapshot).CanTrade
}
