// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Palette. Pulp yellow for headings, muted tones for status lines.
var (
	pulp    = lipgloss.Color("#F7B32B")
	teal    = lipgloss.Color("#4ECDC4")
	amber   = lipgloss.Color("#FFE66D")
	red     = lipgloss.Color("#FF6B6B")
	seafoam = lipgloss.Color("#95E1D3")
	gray    = lipgloss.Color("#666666")
	ink     = lipgloss.Color("#333333")
)

var (
	// TitleStyle renders section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(pulp).MarginBottom(1)
	// SuccessStyle renders confirmations.
	SuccessStyle = lipgloss.NewStyle().Foreground(teal)
	// SubtleStyle renders secondary detail such as hashes and skipped rows.
	SubtleStyle = lipgloss.NewStyle().Foreground(gray)

	warningStyle = lipgloss.NewStyle().Foreground(amber)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	infoStyle    = lipgloss.NewStyle().Foreground(seafoam)
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(pulp)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ink).Padding(1, 2)
	headerStyle  = lipgloss.NewStyle().Bold(true).PaddingRight(2)
	cellStyle    = lipgloss.NewStyle().PaddingRight(2)
	ruleStyle    = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(ink)
)

// Icons.
const (
	InfoIcon  = "ℹ️"
	ComicIcon = "📚"
	ScanIcon  = "🔍"
	ChartIcon = "📊"
	MoneyIcon = "💵"

	successIcon = "✓"
	errorIcon   = "✗"
	warningIcon = "⚠️"
)

// FormatSuccess prefixes message with a check mark.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(successIcon + " " + message)
}

// FormatError prefixes message with a cross.
func FormatError(message string) string {
	return errorStyle.Render(errorIcon + " " + message)
}

// FormatWarning prefixes message with a warning sign.
func FormatWarning(message string) string {
	return warningStyle.Render(warningIcon + " " + message)
}

// FormatInfo prefixes message with an info sign.
func FormatInfo(message string) string {
	return infoStyle.Render(InfoIcon + " " + message)
}

// FormatTitle formats a title with the longbox icon.
func FormatTitle(title string) string {
	return TitleStyle.Render(ComicIcon + " " + title)
}

// FormatPrompt renders a question awaiting input.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox draws a rounded border around a title and content.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.UnsetMargins().Render(title), content))
}

// RenderTable lays out rows under a bold header with padded columns.
func RenderTable(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	renderRow := func(cells []string, style lipgloss.Style) string {
		rendered := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			rendered[i] = style.Width(widths[i] + 2).Render(cell)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	}

	lines := []string{ruleStyle.Render(renderRow(headers, headerStyle))}
	for _, row := range rows {
		lines = append(lines, renderRow(row, cellStyle))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
