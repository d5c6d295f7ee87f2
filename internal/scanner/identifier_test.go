package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/matching"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearcher answers queries from a fixed table and records every call.
type fakeSearcher struct {
	results map[string][]model.ComicMatch
	errs    map[string]error
	calls   []string
	mu      sync.Mutex
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]model.ComicMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func sagaTokens() model.IssueTokens {
	return model.IssueTokens{
		Title:       "Saga",
		TitleTokens: []string{"Saga"},
		IssueNumber: "1",
		Publisher:   "Image",
		Year:        2012,
	}
}

func newTestIdentifier(t *testing.T, searcher Searcher) *Identifier {
	t.Helper()
	db := testutil.SetupTestDB(t)
	id, err := NewIdentifier(searcher, db.Storage, DefaultThresholds(), nil)
	require.NoError(t, err)
	return id
}

func TestIdentifier_StopsAtHighConfidence(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]model.ComicMatch{
		"Saga 1": {
			{ExternalID: "saga-1", Title: "Saga", IssueNumber: "1", Confidence: 0.93},
			{ExternalID: "saga-1-var", Title: "Saga", IssueNumber: "1", Confidence: 0.41},
		},
	}}
	id := newTestIdentifier(t, searcher)

	result, err := id.Identify(context.Background(), sagaTokens())
	require.NoError(t, err)

	assert.Equal(t, BandHigh, result.Band)
	assert.True(t, result.AutoAccept())
	require.NotNil(t, result.Match)
	assert.Equal(t, "saga-1", result.Match.ExternalID)
	require.NotNil(t, result.Query)
	assert.Equal(t, model.StrategyPrimary, result.Query.Strategy)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, []string{"Saga 1"}, searcher.calls)
	assert.Len(t, result.Candidates, 2)
	assert.Equal(t, matching.ComputeMatchHash(sagaTokens().Key()), result.Hash)
}

func TestIdentifier_TriesEveryQueryBelowThreshold(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]model.ComicMatch{
		"Saga #1": {{ExternalID: "saga-1", Title: "Saga", Confidence: 0.7}},
		"Saga":    {{ExternalID: "saga-1", Title: "Saga", Confidence: 0.5}, {ExternalID: "saga-tpb", Title: "Saga Vol. 1", Confidence: 0.3}},
	}}
	id := newTestIdentifier(t, searcher)

	result, err := id.Identify(context.Background(), sagaTokens())
	require.NoError(t, err)

	queries := matching.BuildQueries(sagaTokens())
	assert.Equal(t, len(queries), result.Attempts)
	assert.Len(t, searcher.calls, len(queries))
	for i, q := range queries {
		assert.Equal(t, q.Query, searcher.calls[i], "queries run in priority order")
	}

	assert.Equal(t, BandMedium, result.Band)
	assert.False(t, result.AutoAccept())
	require.NotNil(t, result.Match)
	assert.Equal(t, "Saga #1", result.Query.Query)

	// Duplicates keep their best confidence.
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, "saga-1", result.Candidates[0].ExternalID)
	assert.Equal(t, 0.7, result.Candidates[0].Confidence)
}

func TestIdentifier_LowAndNone(t *testing.T) {
	t.Run("low", func(t *testing.T) {
		searcher := &fakeSearcher{results: map[string][]model.ComicMatch{
			"Saga": {{ExternalID: "x", Title: "Sagas of the Swamp", Confidence: 0.2}},
		}}
		result, err := newTestIdentifier(t, searcher).Identify(context.Background(), sagaTokens())
		require.NoError(t, err)
		assert.Equal(t, BandLow, result.Band)
		assert.NotNil(t, result.Match)
	})

	t.Run("none", func(t *testing.T) {
		result, err := newTestIdentifier(t, &fakeSearcher{}).Identify(context.Background(), sagaTokens())
		require.NoError(t, err)
		assert.Equal(t, BandNone, result.Band)
		assert.Nil(t, result.Match)
		assert.Empty(t, result.Candidates)
	})
}

func TestIdentifier_EmptyTitle(t *testing.T) {
	searcher := &fakeSearcher{}
	result, err := newTestIdentifier(t, searcher).Identify(context.Background(), model.IssueTokens{IssueNumber: "5"})
	require.NoError(t, err)
	assert.Equal(t, BandNone, result.Band)
	assert.Zero(t, result.Attempts)
	assert.Empty(t, searcher.calls)
}

func TestIdentifier_SearchErrors(t *testing.T) {
	upstream := errors.New("upstream unavailable")

	t.Run("partial failure recovers", func(t *testing.T) {
		searcher := &fakeSearcher{
			errs: map[string]error{"Saga 1": upstream},
			results: map[string][]model.ComicMatch{
				"Saga #1": {{ExternalID: "saga-1", Title: "Saga", Confidence: 0.9}},
			},
		}
		result, err := newTestIdentifier(t, searcher).Identify(context.Background(), sagaTokens())
		require.NoError(t, err)
		assert.Equal(t, BandHigh, result.Band)
		assert.Equal(t, 2, result.Attempts)
	})

	t.Run("every search fails", func(t *testing.T) {
		errs := make(map[string]error)
		for _, q := range matching.BuildQueries(sagaTokens()) {
			errs[q.Query] = upstream
		}
		_, err := newTestIdentifier(t, &fakeSearcher{errs: errs}).Identify(context.Background(), sagaTokens())
		assert.ErrorIs(t, err, upstream)
	})
}

func TestIdentifier_ContextCanceled(t *testing.T) {
	searcher := &fakeSearcher{}
	id, err := NewIdentifier(searcher, nil, DefaultThresholds(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = id.Identify(ctx, sagaTokens())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, searcher.calls)
}

func TestIdentifier_ConfirmThenCacheHit(t *testing.T) {
	searcher := &fakeSearcher{}
	id := newTestIdentifier(t, searcher)
	ctx := context.Background()

	match := model.ComicMatch{ExternalID: "saga-1", Title: "Saga", IssueNumber: "1", Publisher: "Image", Confidence: 0.7}
	verified, err := id.Confirm(ctx, sagaTokens(), match)
	require.NoError(t, err)
	assert.Equal(t, matching.ComputeMatchHash(sagaTokens().Key()), verified.Hash)

	// Different punctuation and case normalize to the same hash.
	rescanned := model.IssueTokens{Title: "SAGA!", IssueNumber: "1", Publisher: "image."}
	result, err := id.Identify(ctx, rescanned)
	require.NoError(t, err)

	assert.Equal(t, BandVerified, result.Band)
	assert.True(t, result.AutoAccept())
	assert.Equal(t, match, *result.Match)
	assert.Empty(t, searcher.calls, "cache hit should skip the metadata service")
}

func TestIdentifier_ConfirmWithoutCache(t *testing.T) {
	id, err := NewIdentifier(&fakeSearcher{}, nil, DefaultThresholds(), nil)
	require.NoError(t, err)

	_, err = id.Confirm(context.Background(), sagaTokens(), model.ComicMatch{ExternalID: "1", Title: "Saga"})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestNewIdentifier_Validation(t *testing.T) {
	_, err := NewIdentifier(nil, nil, DefaultThresholds(), nil)
	require.Error(t, err)

	_, err = NewIdentifier(&fakeSearcher{}, nil, Thresholds{High: 0.5, Medium: 0.8}, nil)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestThresholds_BandFor(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		want       Band
		confidence float64
	}{
		{confidence: 1, want: BandHigh},
		{confidence: 0.85, want: BandHigh},
		{confidence: 0.8499, want: BandMedium},
		{confidence: 0.60, want: BandMedium},
		{confidence: 0.59, want: BandLow},
		{confidence: 0.01, want: BandLow},
		{confidence: 0, want: BandNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, th.BandFor(tt.confidence), "confidence %v", tt.confidence)
	}
}
