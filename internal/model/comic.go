// Package model defines the core domain models used throughout the application.
package model

import "time"

// MatchKey identifies a comic issue for match caching.
// Nil Issue or Publisher means the value was not known.
type MatchKey struct {
	Issue     *string
	Publisher *string
	Title     string
}

// IssueTokens holds the text fragments pulled off a comic cover.
// Empty strings and a zero Year mean the value was not found.
type IssueTokens struct {
	Title       string   `json:"title" yaml:"title"`
	IssueNumber string   `json:"issue_number,omitempty" yaml:"issue_number,omitempty"`
	Publisher   string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	TitleTokens []string `json:"title_tokens,omitempty" yaml:"title_tokens,omitempty"`
	Year        int      `json:"year,omitempty" yaml:"year,omitempty"`
}

// Key returns the match key for these tokens.
func (t IssueTokens) Key() MatchKey {
	key := MatchKey{Title: t.Title}
	if t.IssueNumber != "" {
		issue := t.IssueNumber
		key.Issue = &issue
	}
	if t.Publisher != "" {
		publisher := t.Publisher
		key.Publisher = &publisher
	}
	return key
}

// QueryStrategy describes how a candidate query was derived.
type QueryStrategy string

// Query strategies, strongest first.
const (
	StrategyPrimary  QueryStrategy = "primary"
	StrategyVariant  QueryStrategy = "variant"
	StrategyLoose    QueryStrategy = "loose"
	StrategyFallback QueryStrategy = "fallback"
)

// CandidateQuery is one search string to try against the metadata service.
type CandidateQuery struct {
	Query    string        `json:"query" yaml:"query"`
	Strategy QueryStrategy `json:"strategy" yaml:"strategy"`
	Priority int           `json:"priority" yaml:"priority"`
}

// ComicMatch is a candidate issue returned by the metadata service.
type ComicMatch struct {
	ExternalID  string  `json:"external_id" yaml:"external_id"`
	Title       string  `json:"title" yaml:"title"`
	IssueNumber string  `json:"issue_number,omitempty" yaml:"issue_number,omitempty"`
	Publisher   string  `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	CoverURL    string  `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
	Year        int     `json:"year,omitempty" yaml:"year,omitempty"`
	Confidence  float64 `json:"confidence" yaml:"confidence"`
}

// VerifiedMatch is a match a user confirmed, cached under its match hash.
type VerifiedMatch struct {
	VerifiedAt time.Time  `json:"verified_at" yaml:"verified_at"`
	Hash       string     `json:"hash" yaml:"hash"`
	Match      ComicMatch `json:"match" yaml:"match"`
	UseCount   int        `json:"use_count" yaml:"use_count"`
}
