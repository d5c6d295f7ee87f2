package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/eligibility"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/matching"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type feeQuoteRequest struct {
	RateOverride json.RawMessage `json:"rate_override,omitempty"`
	SellerID     string          `json:"seller_id,omitempty"`
	Gross        float64         `json:"gross"`
}

type feeQuoteResponse struct {
	model.FeeBreakdown
	PlatformRate float64 `json:"platform_rate"`
	RateSource   string  `json:"rate_source"`
}

// handleFeeQuote prices a sale. An explicit rate_override wins over the
// seller's stored custom rate, which wins over the schedule.
func (s *Server) handleFeeQuote(w http.ResponseWriter, r *http.Request) {
	var req feeQuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	override, err := fees.ParseRateOverride(req.RateOverride)
	if err != nil {
		s.logger.Warn("rejected rate override", "raw", string(req.RateOverride), "error", err)
		s.writeDomainError(w, err)
		return
	}

	source := "override"
	if override == nil && req.SellerID != "" {
		seller, err := s.store.GetSeller(r.Context(), req.SellerID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		override = seller.CustomFeeRate
		source = "seller"
	}
	if override == nil {
		source = "schedule"
	}

	breakdown, err := s.calc.Calculate(req.Gross, override)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	rate := s.calc.Schedule().PlatformRate
	if override != nil {
		rate = *override
	}
	s.writeJSON(w, http.StatusOK, feeQuoteResponse{
		FeeBreakdown: breakdown,
		PlatformRate: rate,
		RateSource:   source,
	})
}

type eligibilityResponse struct {
	SellerID string                    `json:"seller_id"`
	Snapshot model.EligibilitySnapshot `json:"snapshot"`
	eligibility.Decision
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request) {
	sellerID := chi.URLParam(r, "sellerID")

	snapshot, err := s.store.GetEligibilitySnapshot(r.Context(), sellerID, s.now(), s.policy.DisputeWindow)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, eligibilityResponse{
		SellerID: sellerID,
		Snapshot: snapshot,
		Decision: s.policy.Decide(snapshot),
	})
}

type queriesResponse struct {
	Queries []model.CandidateQuery `json:"queries"`
	Hash    string                 `json:"hash,omitempty"`
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	var tokens model.IssueTokens
	if err := decodeJSON(w, r, &tokens); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}
	// An explicit empty title_tokens disables the fallback query.
	if tokens.TitleTokens == nil {
		tokens.TitleTokens = strings.Fields(tokens.Title)
	}

	resp := queriesResponse{Queries: matching.BuildQueries(tokens)}
	if resp.Queries == nil {
		resp.Queries = []model.CandidateQuery{}
	}
	if strings.TrimSpace(tokens.Title) != "" {
		resp.Hash = matching.ComputeMatchHash(tokens.Key())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type identifyRequest struct {
	Tokens  *model.IssueTokens `json:"tokens,omitempty"`
	OCRText string             `json:"ocr_text,omitempty"`
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if s.identifier == nil {
		s.writeError(w, http.StatusServiceUnavailable, "scanner unavailable",
			errors.New("no metadata service configured"))
		return
	}

	var req identifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request", err)
		return
	}

	var tokens model.IssueTokens
	switch {
	case strings.TrimSpace(req.OCRText) != "":
		tokens = scanner.ExtractTokens(req.OCRText)
	case req.Tokens != nil:
		tokens = *req.Tokens
		if tokens.TitleTokens == nil {
			tokens.TitleTokens = strings.Fields(tokens.Title)
		}
	default:
		s.writeError(w, http.StatusBadRequest, "invalid request", errors.New("ocr_text or tokens is required"))
		return
	}

	result, err := s.identifier.Identify(r.Context(), tokens)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	hash := strings.ToLower(chi.URLParam(r, "hash"))
	if _, err := hex.DecodeString(hash); err != nil || len(hash) != matching.MatchHashLength {
		s.writeError(w, http.StatusBadRequest, "invalid request", errors.New("hash must be 12 hex characters"))
		return
	}

	match, err := s.store.GetVerifiedMatch(r.Context(), hash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "no verified match", nil)
			return
		}
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, match)
}
