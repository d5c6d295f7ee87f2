package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/Veraticus/longbox/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user quits the picker with ctrl+c.
var ErrAborted = errors.New("picker aborted")

// Outcome is how the picker ended.
type Outcome int

// Picker outcomes.
const (
	OutcomePending Outcome = iota
	OutcomeConfirmed
	OutcomeSkipped
	OutcomeAborted
)

// PickerModel lists the candidates for one scanned cover.
type PickerModel struct {
	help       help.Model
	theme      themes.Theme
	keys       KeyMap
	result     scanner.Result
	candidates []model.ComicMatch
	cursor     int
	width      int
	outcome    Outcome
}

// NewPicker builds a picker for result. The best match is listed first
// even when it is missing from the candidate list.
func NewPicker(result scanner.Result, theme themes.Theme) PickerModel {
	candidates := append([]model.ComicMatch(nil), result.Candidates...)
	if result.Match != nil {
		found := false
		for _, c := range candidates {
			if c.ExternalID == result.Match.ExternalID {
				found = true
				break
			}
		}
		if !found {
			candidates = append([]model.ComicMatch{*result.Match}, candidates...)
		}
	}

	return PickerModel{
		result:     result,
		candidates: candidates,
		keys:       DefaultKeyMap(),
		help:       help.New(),
		theme:      theme,
	}
}

// Init implements tea.Model.
func (m PickerModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.outcome = OutcomeAborted
			return m, tea.Quit
		case key.Matches(msg, m.keys.Skip):
			m.outcome = OutcomeSkipped
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.candidates)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Select):
			if len(m.candidates) == 0 {
				return m, nil
			}
			m.outcome = OutcomeConfirmed
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m PickerModel) View() string {
	if m.outcome != OutcomePending {
		return ""
	}

	var b strings.Builder
	tokens := m.result.Tokens
	title := tokens.Title
	if tokens.IssueNumber != "" {
		title += " #" + tokens.IssueNumber
	}
	b.WriteString(m.theme.Title.Render("Confirm scan: " + title))
	b.WriteString("\n")
	b.WriteString(m.theme.Subtitle.Render(fmt.Sprintf("hash %s · band %s · %d queries tried",
		m.result.Hash, m.bandStyle(m.result.Band).Render(string(m.result.Band)), m.result.Attempts)))
	b.WriteString("\n\n")

	if len(m.candidates) == 0 {
		b.WriteString(m.theme.Muted.Render("No candidates found. Press esc to skip."))
	}

	thresholds := scanner.DefaultThresholds()
	for i, c := range m.candidates {
		line := fmt.Sprintf("%-40s %5.0f%%  %s", candidateLabel(c), c.Confidence*100,
			m.bandStyle(thresholds.BandFor(c.Confidence)).Render(string(thresholds.BandFor(c.Confidence))))
		if i == m.cursor {
			b.WriteString(m.theme.Selected.Render("> " + line))
		} else {
			b.WriteString(m.theme.Normal.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	box := m.theme.RoundedBox
	if m.width > 4 {
		box = box.MaxWidth(m.width)
	}
	return box.Render(b.String())
}

func (m PickerModel) bandStyle(band scanner.Band) lipgloss.Style {
	switch band {
	case scanner.BandVerified, scanner.BandHigh:
		return m.theme.BandHigh
	case scanner.BandMedium:
		return m.theme.BandMedium
	default:
		return m.theme.BandLow
	}
}

// Outcome reports how the picker ended.
func (m PickerModel) Outcome() Outcome {
	return m.outcome
}

// Choice returns the confirmed candidate, or nil if none was confirmed.
func (m PickerModel) Choice() *model.ComicMatch {
	if m.outcome != OutcomeConfirmed || len(m.candidates) == 0 {
		return nil
	}
	c := m.candidates[m.cursor]
	return &c
}

func candidateLabel(c model.ComicMatch) string {
	label := c.Title
	if c.IssueNumber != "" {
		label += " #" + c.IssueNumber
	}
	if c.Year > 0 {
		label += fmt.Sprintf(" (%d)", c.Year)
	}
	if c.Publisher != "" {
		label += " · " + c.Publisher
	}
	return label
}

// PickOptions configure where the picker reads and draws.
type PickOptions struct {
	Input  io.Reader
	Output io.Writer
	Theme  themes.Theme
}

// PickMatch runs the picker until the user confirms or skips.
// A skip returns nil without error.
func PickMatch(ctx context.Context, result scanner.Result, opts PickOptions) (*model.ComicMatch, error) {
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	final, err := tea.NewProgram(NewPicker(result, opts.Theme), progOpts...).Run()
	if err != nil {
		return nil, fmt.Errorf("picker failed: %w", err)
	}

	picked, ok := final.(PickerModel)
	if !ok {
		return nil, fmt.Errorf("unexpected picker model %T", final)
	}
	if picked.Outcome() == OutcomeAborted {
		return nil, ErrAborted
	}
	return picked.Choice(), nil
}
