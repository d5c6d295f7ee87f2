package matching

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/longbox/internal/model"
)

// Query priorities. Higher runs first.
const (
	PriorityTitleIssue          = 100
	PriorityTitleHashIssue      = 95
	PriorityTitleIssuePublisher = 90
	PriorityTitleYearIssue      = 85
	PriorityTitlePublisher      = 75
	PriorityTitleOnly           = 70
	PriorityLongestToken        = 50
)

// MinFallbackTokenLength is the shortest title token usable as a last-resort query.
const MinFallbackTokenLength = 4

// BuildQueries turns cover tokens into search queries ordered by priority.
// Without a title there is nothing to search for and the result is empty.
func BuildQueries(tokens model.IssueTokens) []model.CandidateQuery {
	title := strings.TrimSpace(tokens.Title)
	if title == "" {
		return []model.CandidateQuery{}
	}

	issue := strings.TrimSpace(tokens.IssueNumber)
	publisher := strings.TrimSpace(tokens.Publisher)

	queries := make([]model.CandidateQuery, 0, 7)
	add := func(query string, strategy model.QueryStrategy, priority int) {
		queries = append(queries, model.CandidateQuery{
			Query:    query,
			Strategy: strategy,
			Priority: priority,
		})
	}

	if issue != "" {
		add(title+" "+issue, model.StrategyPrimary, PriorityTitleIssue)
		add(title+" #"+issue, model.StrategyVariant, PriorityTitleHashIssue)
		if publisher != "" {
			add(title+" "+issue+" "+publisher, model.StrategyVariant, PriorityTitleIssuePublisher)
		}
		if tokens.Year > 0 {
			add(fmt.Sprintf("%s (%d) %s", title, tokens.Year, issue), model.StrategyVariant, PriorityTitleYearIssue)
		}
	}

	add(title, model.StrategyLoose, PriorityTitleOnly)

	if publisher != "" {
		add(title+" "+publisher, model.StrategyLoose, PriorityTitlePublisher)
	}

	if token := longestToken(tokens.TitleTokens); token != "" {
		add(token, model.StrategyFallback, PriorityLongestToken)
	}

	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].Priority > queries[j].Priority
	})

	return queries
}

// longestToken returns the first longest token of at least MinFallbackTokenLength runes.
func longestToken(tokens []string) string {
	best := ""
	bestLen := MinFallbackTokenLength - 1
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if n := utf8.RuneCountInString(token); n > bestLen {
			best, bestLen = token, n
		}
	}
	return best
}
