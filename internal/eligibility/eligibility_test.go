package eligibility

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot model.EligibilitySnapshot
		want     bool
	}{
		{
			name: "exactly meets every threshold",
			snapshot: model.EligibilitySnapshot{
				CompletedTransactions: 3,
				IsVerified:            true,
				AccountAgeDays:        7,
			},
			want: true,
		},
		{
			name: "one transaction short",
			snapshot: model.EligibilitySnapshot{
				CompletedTransactions: 2,
				IsVerified:            true,
				AccountAgeDays:        30,
			},
			want: false,
		},
		{
			name: "unverified",
			snapshot: model.EligibilitySnapshot{
				CompletedTransactions: 10,
				AccountAgeDays:        30,
			},
			want: false,
		},
		{
			name: "account one day too new",
			snapshot: model.EligibilitySnapshot{
				CompletedTransactions: 10,
				IsVerified:            true,
				AccountAgeDays:        6,
			},
			want: false,
		},
		{
			name: "recent dispute",
			snapshot: model.EligibilitySnapshot{
				CompletedTransactions: 10,
				IsVerified:            true,
				AccountAgeDays:        365,
				HasRecentDispute:      true,
			},
			want: false,
		},
		{
			name: "override bypasses all checks",
			snapshot: model.EligibilitySnapshot{
				HasRecentDispute: true,
				ManualOverride:   true,
			},
			want: true,
		},
		{
			name:     "zero value fails",
			snapshot: model.EligibilitySnapshot{},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.snapshot))
		})
	}
}

func TestPolicy_DecideReasons(t *testing.T) {
	decision := DefaultPolicy().Decide(model.EligibilitySnapshot{
		CompletedTransactions: 1,
		AccountAgeDays:        2,
		HasRecentDispute:      true,
	})

	assert.False(t, decision.CanTrade)
	assert.False(t, decision.Overridden)
	assert.Equal(t, []Reason{
		ReasonTooFewTransactions,
		ReasonNotVerified,
		ReasonAccountTooNew,
		ReasonRecentDispute,
	}, decision.Reasons)

	override := DefaultPolicy().Decide(model.EligibilitySnapshot{ManualOverride: true})
	assert.True(t, override.CanTrade)
	assert.True(t, override.Overridden)
	assert.Empty(t, override.Reasons)
}

func TestPolicy_CustomThresholds(t *testing.T) {
	policy := Policy{MinCompletedTransactions: 0, MinAccountAgeDays: 0, DisputeWindow: time.Hour}
	require.NoError(t, policy.Validate())

	assert.True(t, policy.Decide(model.EligibilitySnapshot{IsVerified: true}).CanTrade)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())
	assert.Error(t, Policy{MinCompletedTransactions: -1, DisputeWindow: time.Hour}.Validate())
	assert.Error(t, Policy{MinAccountAgeDays: -1, DisputeWindow: time.Hour}.Validate())
	assert.Error(t, Policy{}.Validate())
}

func TestSnapshotRecord_FailsClosed(t *testing.T) {
	var record SnapshotRecord
	require.NoError(t, json.Unmarshal([]byte(`{"completed_transactions": 12, "account_age_days": 90, "is_verified": true}`), &record))

	snapshot := record.Snapshot()
	assert.Equal(t, 12, snapshot.CompletedTransactions)
	assert.True(t, snapshot.HasRecentDispute, "missing dispute flag must count as a dispute")
	assert.False(t, Evaluate(snapshot))

	require.NoError(t, json.Unmarshal([]byte(`{"completed_transactions": 12, "account_age_days": 90, "is_verified": true, "has_recent_dispute": false}`), &record))
	assert.True(t, Evaluate(record.Snapshot()))

	empty := SnapshotRecord{}.Snapshot()
	assert.False(t, Evaluate(empty))
	assert.False(t, empty.ManualOverride)
}
