// Package scanner turns OCR text from a comic cover into an identified issue.
package scanner

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/Veraticus/longbox/internal/model"
)

var (
	issuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`#\s*(\d{1,4}[A-Za-z]?)\b`),
		regexp.MustCompile(`(?i)\bno\.?\s*(\d{1,4}[A-Za-z]?)\b`),
		regexp.MustCompile(`(?i)\bissue\s+(\d{1,4}[A-Za-z]?)\b`),
	}
	yearPattern      = regexp.MustCompile(`\(?\b(19[3-9]\d|20\d{2})\b\)?`)
	priceLinePattern = regexp.MustCompile(`(?i)(\$|¢|\bcents?\b|\bcomics code\b)`)
)

// knownPublishers maps cover spellings to the canonical publisher name.
var knownPublishers = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`(?i)\bmarvel(\s+comics)?\b`), "Marvel"},
	{regexp.MustCompile(`(?i)\bdc(\s+comics)?\b`), "DC"},
	{regexp.MustCompile(`(?i)\bimage(\s+comics)?\b`), "Image"},
	{regexp.MustCompile(`(?i)\bdark\s+horse(\s+comics)?\b`), "Dark Horse"},
	{regexp.MustCompile(`(?i)\bidw(\s+publishing)?\b`), "IDW"},
	{regexp.MustCompile(`(?i)\bboom!?(\s+studios)?`), "BOOM! Studios"},
	{regexp.MustCompile(`(?i)\bdynamite(\s+entertainment)?\b`), "Dynamite"},
	{regexp.MustCompile(`(?i)\bvaliant\b`), "Valiant"},
	{regexp.MustCompile(`(?i)\barchie(\s+comics)?\b`), "Archie"},
	{regexp.MustCompile(`(?i)\boni\s+press\b`), "Oni Press"},
	{regexp.MustCompile(`(?i)\bvertigo\b`), "Vertigo"},
}

// minTitleLetters is the number of letters a line needs to be taken as the title.
const minTitleLetters = 3

// ExtractTokens pulls the title, issue number, publisher, and year out of
// raw OCR text. Fields that cannot be found are left empty.
func ExtractTokens(ocrText string) model.IssueTokens {
	var tokens model.IssueTokens

	lines := strings.Split(strings.ReplaceAll(ocrText, "\r\n", "\n"), "\n")

	for _, line := range lines {
		if tokens.IssueNumber == "" {
			tokens.IssueNumber = findIssueNumber(line)
		}
		if tokens.Year == 0 {
			tokens.Year = findYear(line)
		}
		if tokens.Publisher == "" {
			tokens.Publisher = findPublisher(line)
		}
	}

	// Publisher banners are only used as the title when nothing else fits,
	// which keeps "Marvel Team-Up" style titles intact.
	tokens.Title = findTitle(lines, false)
	if tokens.Title == "" {
		tokens.Title = findTitle(lines, true)
	}

	tokens.TitleTokens = strings.Fields(tokens.Title)
	return tokens
}

func findTitle(lines []string, allowPublisher bool) string {
	for _, line := range lines {
		if priceLinePattern.MatchString(line) {
			continue
		}
		if !allowPublisher && findPublisher(line) != "" {
			continue
		}
		candidate := cleanTitleLine(line)
		if countLetters(candidate) >= minTitleLetters {
			return candidate
		}
	}
	return ""
}

func findIssueNumber(line string) string {
	for _, pattern := range issuePatterns {
		if m := pattern.FindStringSubmatch(line); m != nil {
			if issue := strings.TrimLeft(m[1], "0"); issue != "" {
				return issue
			}
			return "0"
		}
	}
	return ""
}

func findYear(line string) int {
	m := yearPattern.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return year
}

func findPublisher(line string) string {
	for _, p := range knownPublishers {
		if p.pattern.MatchString(line) {
			return p.name
		}
	}
	return ""
}

// cleanTitleLine strips issue and year text from a line.
func cleanTitleLine(line string) string {
	for _, pattern := range issuePatterns {
		line = pattern.ReplaceAllString(line, " ")
	}
	line = yearPattern.ReplaceAllString(line, " ")
	line = strings.Join(strings.Fields(line), " ")
	return strings.TrimFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
