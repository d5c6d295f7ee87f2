package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/schollz/progressbar/v3"
)

// ErrInputTerminated is returned when the input stream ends mid-prompt.
var ErrInputTerminated = errors.New("input terminated")

// ScanStats summarizes a confirmation session.
type ScanStats struct {
	Duration     time.Duration `json:"duration" yaml:"duration"`
	Scanned      int           `json:"scanned" yaml:"scanned"`
	AutoAccepted int           `json:"auto_accepted" yaml:"auto_accepted"`
	Confirmed    int           `json:"confirmed" yaml:"confirmed"`
	Skipped      int           `json:"skipped" yaml:"skipped"`
}

// Prompter asks the user to confirm scanner identifications on a terminal.
type Prompter struct {
	startTime   time.Time
	writer      io.Writer
	reader      *LineReader
	progressBar *progressbar.ProgressBar
	picker      PickFunc
	stats       ScanStats
	total       int
	statsMutex  sync.RWMutex
}

// NewPrompter creates a prompter reading answers from reader.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}

	return &Prompter{
		reader:    NewLineReader(reader),
		writer:    writer,
		startTime: time.Now(),
	}
}

// PickFunc chooses among a result's candidates. It returns nil to skip.
type PickFunc func(ctx context.Context, result scanner.Result) (*model.ComicMatch, error)

// SetPicker replaces the numbered prompt with pick, such as a full-screen picker.
func (p *Prompter) SetPicker(pick PickFunc) {
	p.picker = pick
}

// ConfirmMatch returns the match the user accepts for result, or nil when
// the cover is skipped. Verified and high-band results are accepted without
// prompting.
func (p *Prompter) ConfirmMatch(ctx context.Context, result scanner.Result) (*model.ComicMatch, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	p.updateProgress()

	if result.AutoAccept() && result.Match != nil {
		p.record(func(s *ScanStats) { s.AutoAccepted++ })
		if _, err := fmt.Fprintln(p.writer, FormatSuccess(fmt.Sprintf("%s (%s)", describeMatch(*result.Match), result.Band))); err != nil {
			slog.Warn("Failed to write auto-accept message", "error", err)
		}
		return result.Match, nil
	}

	if len(result.Candidates) == 0 {
		p.record(func(s *ScanStats) { s.Skipped++ })
		if _, err := fmt.Fprintln(p.writer, FormatWarning(fmt.Sprintf("No candidates found for %q", result.Tokens.Title))); err != nil {
			slog.Warn("Failed to write no-candidate message", "error", err)
		}
		return nil, nil
	}

	if p.picker != nil {
		picked, err := p.picker(ctx, result)
		if err != nil {
			return nil, err
		}
		if picked == nil {
			p.record(func(s *ScanStats) { s.Skipped++ })
			return nil, nil
		}
		p.record(func(s *ScanStats) { s.Confirmed++ })
		return picked, nil
	}

	if _, err := fmt.Fprintln(p.writer, RenderBox("Confirm Match", formatResult(result))); err != nil {
		return nil, fmt.Errorf("failed to write match box: %w", err)
	}

	validChoices := []string{"s"}
	if result.Match != nil {
		validChoices = append(validChoices, "a")
		if _, err := fmt.Fprintf(p.writer, "  [A] Accept best match: %s\n", SuccessStyle.Render(describeMatch(*result.Match))); err != nil {
			return nil, fmt.Errorf("failed to write accept option: %w", err)
		}
	}
	for i := range result.Candidates {
		validChoices = append(validChoices, strconv.Itoa(i+1))
	}
	if _, err := fmt.Fprintf(p.writer, "  [1-%d] Pick a candidate\n  [S] Skip this cover\n\n", len(result.Candidates)); err != nil {
		return nil, fmt.Errorf("failed to write options: %w", err)
	}

	choice, err := p.promptChoice(ctx, "Choice", validChoices)
	if err != nil {
		return nil, err
	}

	switch choice {
	case "s":
		p.record(func(s *ScanStats) { s.Skipped++ })
		return nil, nil
	case "a":
		p.record(func(s *ScanStats) { s.Confirmed++ })
		return result.Match, nil
	default:
		n, _ := strconv.Atoi(choice)
		picked := result.Candidates[n-1]
		p.record(func(s *ScanStats) { s.Confirmed++ })
		return &picked, nil
	}
}

// SetTotal sets the number of covers in the session and starts the progress bar.
func (p *Prompter) SetTotal(total int) {
	p.total = total
	p.progressBar = NewProgressBar(p.writer, total, "Scanning covers...")
}

// Stats returns statistics about the session so far.
func (p *Prompter) Stats() ScanStats {
	p.statsMutex.RLock()
	defer p.statsMutex.RUnlock()

	stats := p.stats
	stats.Duration = time.Since(p.startTime)
	return stats
}

// ShowCompletion displays the session summary.
func (p *Prompter) ShowCompletion() {
	if p.progressBar != nil {
		if err := p.progressBar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
	}

	stats := p.Stats()
	summary := fmt.Sprintf("%s Statistics:\n", ChartIcon) +
		fmt.Sprintf("  • Covers scanned: %d\n", stats.Scanned) +
		fmt.Sprintf("  • Auto-accepted: %d\n", stats.AutoAccepted) +
		fmt.Sprintf("  • Confirmed: %d\n", stats.Confirmed) +
		fmt.Sprintf("  • Skipped: %d\n", stats.Skipped) +
		fmt.Sprintf("  • Time taken: %s", stats.Duration.Round(time.Second))

	if _, err := fmt.Fprintln(p.writer, RenderBox("Scan Complete", summary)); err != nil {
		slog.Warn("Failed to write completion box", "error", err)
	}
}

// NewProgressBar builds the progress bar used by long-running commands.
func NewProgressBar(w io.Writer, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[yellow][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

func (p *Prompter) updateProgress() {
	p.record(func(s *ScanStats) { s.Scanned++ })
	if p.progressBar != nil {
		if err := p.progressBar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

func (p *Prompter) record(update func(*ScanStats)) {
	p.statsMutex.Lock()
	defer p.statsMutex.Unlock()
	update(&p.stats)
}

func (p *Prompter) promptChoice(ctx context.Context, prompt string, validChoices []string) (string, error) {
	for {
		if _, err := fmt.Fprintf(p.writer, "%s: ", FormatPrompt(prompt)); err != nil {
			return "", fmt.Errorf("failed to write prompt: %w", err)
		}

		input, err := p.reader.ReadLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return "", ErrInputTerminated
			}
			return "", err
		}

		choice := strings.ToLower(input)
		for _, valid := range validChoices {
			if choice == valid {
				return choice, nil
			}
		}

		if _, err := fmt.Fprintln(p.writer, FormatError("Invalid choice. Please try again.")); err != nil {
			slog.Warn("Failed to write error message", "error", err)
		}
	}
}

func formatResult(result scanner.Result) string {
	t := result.Tokens
	header := TitleStyle.Render(fmt.Sprintf("%s Scanned: %s", ScanIcon, t.Title))

	details := fmt.Sprintf("%s Cover text:\n", InfoIcon) +
		fmt.Sprintf("  Issue: %s\n", valueOrDash(t.IssueNumber)) +
		fmt.Sprintf("  Publisher: %s\n", valueOrDash(t.Publisher))
	if t.Year > 0 {
		details += fmt.Sprintf("  Year: %d\n", t.Year)
	}

	candidates := fmt.Sprintf("\n%s Candidates (%s confidence):\n", ComicIcon, result.Band)
	for i, c := range result.Candidates {
		candidates += fmt.Sprintf("  %d. %s  %s\n", i+1, describeMatch(c), SubtleStyle.Render(fmt.Sprintf("%.0f%%", c.Confidence*100)))
	}

	return header + "\n\n" + details + candidates
}

func describeMatch(m model.ComicMatch) string {
	s := m.Title
	if m.IssueNumber != "" {
		s += " #" + m.IssueNumber
	}
	if m.Year > 0 {
		s += fmt.Sprintf(" (%d)", m.Year)
	}
	if m.Publisher != "" {
		s += " - " + m.Publisher
	}
	return s
}

func valueOrDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
