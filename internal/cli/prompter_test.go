package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mediumResult() scanner.Result {
	best := model.ComicMatch{ExternalID: "asm-300", Title: "The Amazing Spider-Man", IssueNumber: "300", Publisher: "Marvel", Year: 1988, Confidence: 0.72}
	return scanner.Result{
		Tokens: model.IssueTokens{Title: "AMAZING SPIDER-MAN", IssueNumber: "300", Publisher: "Marvel", Year: 1988},
		Band:   scanner.BandMedium,
		Match:  &best,
		Candidates: []model.ComicMatch{
			best,
			{ExternalID: "asm-300-np", Title: "The Amazing Spider-Man", IssueNumber: "300", Publisher: "Marvel", Confidence: 0.55},
		},
	}
}

func TestPrompter_ConfirmMatch(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		result     scanner.Result
		wantID     string
		wantStats  ScanStats
		wantOutput string
	}{
		{
			name:       "accept best",
			input:      "a\n",
			result:     mediumResult(),
			wantID:     "asm-300",
			wantStats:  ScanStats{Scanned: 1, Confirmed: 1},
			wantOutput: "Confirm Match",
		},
		{
			name:       "pick candidate after invalid input",
			input:      "9\n2\n",
			result:     mediumResult(),
			wantID:     "asm-300-np",
			wantStats:  ScanStats{Scanned: 1, Confirmed: 1},
			wantOutput: "Invalid choice",
		},
		{
			name:      "skip",
			input:     "S\n",
			result:    mediumResult(),
			wantStats: ScanStats{Scanned: 1, Skipped: 1},
		},
		{
			name: "high band is accepted without prompting",
			result: func() scanner.Result {
				r := mediumResult()
				r.Band = scanner.BandHigh
				return r
			}(),
			wantID:    "asm-300",
			wantStats: ScanStats{Scanned: 1, AutoAccepted: 1},
		},
		{
			name:       "no candidates",
			result:     scanner.Result{Tokens: model.IssueTokens{Title: "Mystery"}, Band: scanner.BandNone},
			wantStats:  ScanStats{Scanned: 1, Skipped: 1},
			wantOutput: "No candidates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			got, err := p.ConfirmMatch(context.Background(), tt.result)
			require.NoError(t, err)

			if tt.wantID == "" {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, tt.wantID, got.ExternalID)
			}

			stats := p.Stats()
			stats.Duration = 0
			assert.Equal(t, tt.wantStats, stats)
			if tt.wantOutput != "" {
				assert.Contains(t, out.String(), tt.wantOutput)
			}
		})
	}
}

func TestPrompter_ConfirmMatchInputTerminated(t *testing.T) {
	p := NewPrompter(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.ConfirmMatch(context.Background(), mediumResult())
	assert.ErrorIs(t, err, ErrInputTerminated)
}

func TestPrompter_ConfirmMatchCanceled(t *testing.T) {
	p := NewPrompter(strings.NewReader("a\n"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ConfirmMatch(ctx, mediumResult())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrompter_SetPicker(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out)

	var seen []string
	p.SetPicker(func(_ context.Context, result scanner.Result) (*model.ComicMatch, error) {
		seen = append(seen, result.Tokens.Title)
		if len(seen) == 1 {
			picked := result.Candidates[1]
			return &picked, nil
		}
		return nil, nil
	})

	got, err := p.ConfirmMatch(context.Background(), mediumResult())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "asm-300-np", got.ExternalID)

	got, err = p.ConfirmMatch(context.Background(), mediumResult())
	require.NoError(t, err)
	assert.Nil(t, got)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Len(t, seen, 2)
	assert.NotContains(t, out.String(), "Confirm Match", "picker replaces the numbered prompt")
}

func TestPrompter_ShowCompletion(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("s\n"), &out)
	p.SetTotal(1)

	_, err := p.ConfirmMatch(context.Background(), mediumResult())
	require.NoError(t, err)
	p.ShowCompletion()

	assert.Contains(t, out.String(), "Scan Complete")
	assert.Contains(t, out.String(), "Covers scanned: 1")
}

func TestDescribeMatch(t *testing.T) {
	assert.Equal(t, "Saga", describeMatch(model.ComicMatch{Title: "Saga"}))
	assert.Equal(t, "Saga #1 (2012) - Image", describeMatch(model.ComicMatch{Title: "Saga", IssueNumber: "1", Year: 2012, Publisher: "Image"}))
}

func TestRenderTable(t *testing.T) {
	table := RenderTable([]string{"Month", "Net"}, [][]string{{"2024-01", "$93.05"}, {"2024-02", "$1,234.56"}})
	assert.Contains(t, table, "Month")
	assert.Contains(t, table, "$1,234.56")
	assert.Len(t, strings.Split(table, "\n"), 4, "header, border, and two rows")
}

func TestInterruptHandler_Signal(t *testing.T) {
	var buf bytes.Buffer
	h := NewInterruptHandler(&buf)
	ctx := h.HandleInterrupts(context.Background(), true)

	h.interrupt(true)
	h.interrupt(true)

	assert.True(t, h.WasInterrupted())
	assert.Equal(t, 1, strings.Count(buf.String(), "Interrupted!"))
	assert.Contains(t, buf.String(), "re-running the import")
	assert.NoError(t, ctx.Err(), "only a delivered signal cancels the context")
}
