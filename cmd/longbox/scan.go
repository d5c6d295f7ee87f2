package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/metadata"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/scanner"
	"github.com/Veraticus/longbox/internal/tui"
	"github.com/Veraticus/longbox/internal/tui/themes"
	"github.com/spf13/cobra"
)

// coverSeparator divides covers in a multi-cover OCR file.
const coverSeparator = "---"

type scanOutcome struct {
	Match  *model.ComicMatch `json:"match,omitempty" yaml:"match,omitempty"`
	Result scanner.Result    `json:"result" yaml:"result"`
	Cached bool              `json:"cached" yaml:"cached"`
}

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Identify comics from cover OCR text",
		Long: `Extract title, issue, publisher, and year from OCR'd cover text and
identify each cover against the comic metadata service.

Put several covers in one file by separating them with a line containing
only "---". High-confidence and previously verified matches are accepted
automatically; anything else is offered for confirmation. Confirmed matches
are remembered so the same cover is recognized instantly next time.

Without --text-file the text is read from stdin and only automatic matches
are accepted.`,
		Args: cobra.NoArgs,
		RunE: runScan,
	}

	cmd.Flags().String("text-file", "", "file containing OCR text")
	cmd.Flags().Bool("interactive", false, "pick candidates in a full-screen list")
	cmd.Flags().String("theme", "default", "picker theme (default, catppuccin)")
	addOutputFlag(cmd)

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	textFile, _ := cmd.Flags().GetString("text-file")
	interactive, _ := cmd.Flags().GetBool("interactive")
	themeName, _ := cmd.Flags().GetString("theme")

	var (
		text []byte
		err  error
	)
	if textFile != "" {
		text, err = os.ReadFile(textFile) // #nosec G304
	} else {
		text, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read OCR text: %w", err)
	}

	covers := splitCovers(string(text))
	if len(covers) == 0 {
		return common.NewUserError("No cover text to scan.", common.ErrNoMatch)
	}

	if appCfg.Metadata.BaseURL == "" {
		return common.NewUserError(
			"The metadata service is not configured. Set metadata.base_url in your config or LONGBOX_METADATA_BASE_URL.",
			common.ErrMissingConfig)
	}
	client, err := metadata.NewClient(appCfg.Metadata, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	identifier, err := scanner.NewIdentifier(client, store, appCfg.Scanner, slog.Default())
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	prompter := cli.NewPrompter(cmd.InOrStdin(), out)
	canPrompt := textFile != ""
	if interactive && canPrompt {
		theme := themes.ByName(themeName)
		prompter.SetPicker(func(ctx context.Context, result scanner.Result) (*model.ComicMatch, error) {
			return tui.PickMatch(ctx, result, tui.PickOptions{Theme: theme})
		})
	}
	prompter.SetTotal(len(covers))

	outcomes := make([]scanOutcome, 0, len(covers))
scanLoop:
	for _, text := range covers {
		tokens := scanner.ExtractTokens(text)
		result, err := identifier.Identify(ctx, tokens)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			common.LogError(err, "Identification failed", common.Fields{"title": tokens.Title, "issue": tokens.IssueNumber})
			outcomes = append(outcomes, scanOutcome{Result: result})
			if common.IsRetryable(err) {
				writeLine(cmd.ErrOrStderr(), cli.FormatWarning("The metadata service is rate limiting requests; stopping early. Re-run to scan the remaining covers."))
				break scanLoop
			}
			continue
		}

		var match *model.ComicMatch
		switch {
		case canPrompt:
			match, err = prompter.ConfirmMatch(ctx, result)
		case result.AutoAccept():
			match = result.Match
		}
		if err != nil {
			if errors.Is(err, tui.ErrAborted) {
				break scanLoop
			}
			return err
		}

		outcome := scanOutcome{Result: result, Match: match, Cached: result.Band == scanner.BandVerified}
		if match != nil && result.Band != scanner.BandVerified {
			if _, err := identifier.Confirm(ctx, tokens, *match); err != nil {
				slog.Warn("Failed to remember match", "hash", result.Hash, "error", err)
			}
		}
		outcomes = append(outcomes, outcome)
	}

	if canPrompt {
		prompter.ShowCompletion()
	}

	return writeOutput(cmd, outcomes, func(w io.Writer) error {
		rows := make([][]string, 0, len(outcomes))
		for _, o := range outcomes {
			matched := "-"
			if o.Match != nil {
				matched = fmt.Sprintf("%s #%s", o.Match.Title, o.Match.IssueNumber)
			}
			rows = append(rows, []string{o.Result.Tokens.Title, o.Result.Tokens.IssueNumber, string(o.Result.Band), matched, o.Result.Hash})
		}
		writeLine(w, cli.RenderTable([]string{"Title", "Issue", "Band", "Match", "Hash"}, rows))
		return nil
	})
}

// splitCovers breaks OCR text into one chunk per cover, dropping empty chunks.
func splitCovers(text string) []string {
	var covers []string
	var current []string
	flush := func() {
		chunk := strings.TrimSpace(strings.Join(current, "\n"))
		if chunk != "" {
			covers = append(covers, chunk)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == coverSeparator {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return covers
}
