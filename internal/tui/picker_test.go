package tui

import (
	"testing"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/Veraticus/longbox/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pickerResult() scanner.Result {
	best := model.ComicMatch{ExternalID: "asm-300", Title: "Amazing Spider-Man", IssueNumber: "300", Publisher: "Marvel", Year: 1988, Confidence: 0.72}
	return scanner.Result{
		Hash:   "a1b2c3d4e5f6",
		Band:   scanner.BandMedium,
		Tokens: model.IssueTokens{Title: "Amazing Spider-Man", IssueNumber: "300"},
		Match:  &best,
		Candidates: []model.ComicMatch{
			best,
			{ExternalID: "asm-300-var", Title: "Amazing Spider-Man", IssueNumber: "300", Confidence: 0.55},
			{ExternalID: "asm-30", Title: "Amazing Spider-Man", IssueNumber: "30", Confidence: 0.2},
		},
		Attempts: 7,
	}
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func press(m PickerModel, keys ...string) (PickerModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyMsg(k))
		m = next.(PickerModel)
	}
	return m, cmd
}

func TestPicker_Navigation(t *testing.T) {
	tests := []struct {
		name        string
		keys        []string
		wantID      string
		wantOutcome Outcome
	}{
		{name: "enter confirms best", keys: []string{"enter"}, wantID: "asm-300", wantOutcome: OutcomeConfirmed},
		{name: "j moves down", keys: []string{"j", "enter"}, wantID: "asm-300-var", wantOutcome: OutcomeConfirmed},
		{name: "down arrow", keys: []string{"down", "down", "enter"}, wantID: "asm-30", wantOutcome: OutcomeConfirmed},
		{name: "cursor stops at bottom", keys: []string{"j", "j", "j", "j", "enter"}, wantID: "asm-30", wantOutcome: OutcomeConfirmed},
		{name: "k moves up", keys: []string{"j", "j", "k", "enter"}, wantID: "asm-300-var", wantOutcome: OutcomeConfirmed},
		{name: "cursor stops at top", keys: []string{"k", "up", "enter"}, wantID: "asm-300", wantOutcome: OutcomeConfirmed},
		{name: "esc skips", keys: []string{"j", "esc"}, wantOutcome: OutcomeSkipped},
		{name: "q skips", keys: []string{"q"}, wantOutcome: OutcomeSkipped},
		{name: "ctrl+c aborts", keys: []string{"ctrl+c"}, wantOutcome: OutcomeAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(NewPicker(pickerResult(), themes.Default), tt.keys...)
			assert.Equal(t, tt.wantOutcome, m.Outcome())
			require.NotNil(t, cmd, "final key should quit")
			assert.IsType(t, tea.QuitMsg{}, cmd())

			choice := m.Choice()
			if tt.wantID == "" {
				assert.Nil(t, choice)
				return
			}
			require.NotNil(t, choice)
			assert.Equal(t, tt.wantID, choice.ExternalID)
		})
	}
}

func TestPicker_EmptyCandidates(t *testing.T) {
	result := scanner.Result{Band: scanner.BandNone, Tokens: model.IssueTokens{Title: "Mystery"}}
	m := NewPicker(result, themes.Default)

	m, cmd := press(m, "enter")
	assert.Nil(t, cmd, "enter does nothing without candidates")
	assert.Equal(t, OutcomePending, m.Outcome())
	assert.Contains(t, m.View(), "No candidates found")

	m, _ = press(m, "esc")
	assert.Equal(t, OutcomeSkipped, m.Outcome())
	assert.Nil(t, m.Choice())
}

func TestPicker_MatchNotInCandidates(t *testing.T) {
	match := model.ComicMatch{ExternalID: "cached", Title: "Saga", IssueNumber: "1", Confidence: 1}
	m := NewPicker(scanner.Result{Band: scanner.BandVerified, Match: &match}, themes.Default)

	m, _ = press(m, "enter")
	require.NotNil(t, m.Choice())
	assert.Equal(t, "cached", m.Choice().ExternalID)
}

func TestPicker_View(t *testing.T) {
	m := NewPicker(pickerResult(), themes.CatppuccinMocha)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := next.(PickerModel).View()

	assert.Contains(t, view, "Amazing Spider-Man #300")
	assert.Contains(t, view, "a1b2c3d4e5f6")
	assert.Contains(t, view, "Marvel")
	assert.Contains(t, view, "72%")

	m, _ = press(m, "?")
	assert.True(t, m.help.ShowAll)

	m, _ = press(m, "esc")
	assert.Empty(t, m.View())
}

func TestCandidateLabel(t *testing.T) {
	assert.Equal(t, "Saga #1 (2012) · Image",
		candidateLabel(model.ComicMatch{Title: "Saga", IssueNumber: "1", Year: 2012, Publisher: "Image"}))
	assert.Equal(t, "Saga", candidateLabel(model.ComicMatch{Title: "Saga"}))
}

func TestThemeByName(t *testing.T) {
	assert.Equal(t, themes.CatppuccinMocha.Primary, themes.ByName("catppuccin").Primary)
	assert.Equal(t, themes.Default.Primary, themes.ByName("unknown").Primary)
}
