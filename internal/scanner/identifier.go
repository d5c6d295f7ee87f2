package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/matching"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/service"
)

// Searcher finds candidate issues for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]model.ComicMatch, error)
}

// Band buckets an identification by how much it can be trusted.
type Band string

// Confidence bands, most trusted first.
const (
	BandVerified Band = "verified"
	BandHigh     Band = "high"
	BandMedium   Band = "medium"
	BandLow      Band = "low"
	BandNone     Band = "none"
)

// Default band thresholds.
const (
	DefaultHighThreshold   = 0.85
	DefaultMediumThreshold = 0.60
	DefaultMaxCandidates   = 5
)

// Thresholds are the minimum confidences for the high and medium bands.
// Any positive confidence below Medium is low.
type Thresholds struct {
	High          float64 `mapstructure:"high" json:"high" yaml:"high"`
	Medium        float64 `mapstructure:"medium" json:"medium" yaml:"medium"`
	MaxCandidates int     `mapstructure:"max_candidates" json:"max_candidates" yaml:"max_candidates"`
}

// DefaultThresholds returns the standard band thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:          DefaultHighThreshold,
		Medium:        DefaultMediumThreshold,
		MaxCandidates: DefaultMaxCandidates,
	}
}

// Validate checks that 0 < Medium <= High <= 1.
func (t Thresholds) Validate() error {
	if t.Medium <= 0 || t.High > 1 || t.Medium > t.High {
		return fmt.Errorf("%w: scanner thresholds need 0 < medium (%v) <= high (%v) <= 1",
			common.ErrInvalidConfig, t.Medium, t.High)
	}
	if t.MaxCandidates < 0 {
		return fmt.Errorf("%w: scanner max_candidates cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// BandFor classifies a metadata confidence.
func (t Thresholds) BandFor(confidence float64) Band {
	switch {
	case confidence >= t.High:
		return BandHigh
	case confidence >= t.Medium:
		return BandMedium
	case confidence > 0:
		return BandLow
	default:
		return BandNone
	}
}

// Result is the outcome of identifying one cover.
type Result struct {
	Match      *model.ComicMatch     `json:"match,omitempty" yaml:"match,omitempty"`
	Query      *model.CandidateQuery `json:"query,omitempty" yaml:"query,omitempty"`
	Hash       string                `json:"hash" yaml:"hash"`
	Band       Band                  `json:"band" yaml:"band"`
	Tokens     model.IssueTokens     `json:"tokens" yaml:"tokens"`
	Candidates []model.ComicMatch    `json:"candidates,omitempty" yaml:"candidates,omitempty"`
	Attempts   int                   `json:"attempts" yaml:"attempts"`
}

// AutoAccept reports whether the match can be used without asking the user.
func (r Result) AutoAccept() bool {
	return r.Band == BandVerified || r.Band == BandHigh
}

// Identifier resolves cover tokens to a comic issue.
type Identifier struct {
	searcher   Searcher
	cache      service.MatchCache
	logger     *slog.Logger
	now        func() time.Time
	thresholds Thresholds
}

// NewIdentifier creates an Identifier. A nil cache disables verified lookups.
func NewIdentifier(searcher Searcher, cache service.MatchCache, thresholds Thresholds, logger *slog.Logger) (*Identifier, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	if thresholds.MaxCandidates == 0 {
		thresholds.MaxCandidates = DefaultMaxCandidates
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Identifier{
		searcher:   searcher,
		cache:      cache,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Identify checks the verified match cache, then runs candidate queries in
// priority order until one yields a high-confidence match.
func (id *Identifier) Identify(ctx context.Context, tokens model.IssueTokens) (Result, error) {
	result := Result{
		Tokens: tokens,
		Hash:   matching.ComputeMatchHash(tokens.Key()),
		Band:   BandNone,
	}

	if id.cache != nil {
		verified, err := id.cache.GetVerifiedMatch(ctx, result.Hash)
		switch {
		case err == nil:
			match := verified.Match
			result.Match = &match
			result.Band = BandVerified
			result.Candidates = []model.ComicMatch{match}
			id.logger.Debug("verified match cache hit", "hash", result.Hash, "use_count", verified.UseCount)
			return result, nil
		case errors.Is(err, common.ErrNotFound):
		default:
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			id.logger.Warn("verified match lookup failed", "hash", result.Hash, "error", err)
		}
	}

	queries := matching.BuildQueries(tokens)
	if len(queries) == 0 {
		return result, nil
	}

	candidates := make(map[string]model.ComicMatch)
	var bestQuery *model.CandidateQuery
	var best model.ComicMatch
	var lastErr error
	failures := 0

	for i := range queries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		q := queries[i]
		result.Attempts++
		matches, err := id.searcher.Search(ctx, q.Query)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			failures++
			lastErr = err
			id.logger.Warn("metadata search failed", "query", q.Query, "strategy", q.Strategy, "error", err)
			continue
		}

		for _, m := range matches {
			if existing, ok := candidates[m.ExternalID]; !ok || m.Confidence > existing.Confidence {
				candidates[m.ExternalID] = m
			}
			if m.Confidence > best.Confidence {
				best = m
				bestQuery = &q
			}
		}

		if best.Confidence >= id.thresholds.High {
			break
		}
	}

	if failures == result.Attempts && lastErr != nil {
		return result, fmt.Errorf("all %d metadata searches failed: %w", failures, lastErr)
	}

	result.Candidates = rankCandidates(candidates, id.thresholds.MaxCandidates)
	result.Band = id.thresholds.BandFor(best.Confidence)
	if result.Band != BandNone {
		result.Match = &best
		result.Query = bestQuery
	}

	id.logger.Debug("identification complete",
		"title", tokens.Title,
		"band", result.Band,
		"attempts", result.Attempts,
		"candidates", len(result.Candidates))

	return result, nil
}

// Confirm records match as the verified identification for tokens so
// later scans of the same cover hit the cache.
func (id *Identifier) Confirm(ctx context.Context, tokens model.IssueTokens, match model.ComicMatch) (*model.VerifiedMatch, error) {
	if id.cache == nil {
		return nil, fmt.Errorf("%w: no match cache configured", common.ErrMissingConfig)
	}

	verified := &model.VerifiedMatch{
		Hash:       matching.ComputeMatchHash(tokens.Key()),
		Match:      match,
		VerifiedAt: id.now(),
	}
	if err := id.cache.SaveVerifiedMatch(ctx, verified); err != nil {
		return nil, fmt.Errorf("failed to confirm match: %w", err)
	}

	id.logger.Info("match confirmed",
		"hash", verified.Hash,
		"external_id", match.ExternalID,
		"title", match.Title)
	return verified, nil
}

func rankCandidates(candidates map[string]model.ComicMatch, limit int) []model.ComicMatch {
	ranked := make([]model.ComicMatch, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].ExternalID < ranked[j].ExternalID
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
