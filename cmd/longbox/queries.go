package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/matching"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/spf13/cobra"
)

func tokenFlags(cmd *cobra.Command) {
	cmd.Flags().String("issue", "", "issue number")
	cmd.Flags().String("publisher", "", "publisher name")
}

func tokensFromFlags(cmd *cobra.Command, title string) model.IssueTokens {
	issue, _ := cmd.Flags().GetString("issue")
	publisher, _ := cmd.Flags().GetString("publisher")
	tokens := model.IssueTokens{
		Title:       strings.TrimSpace(title),
		TitleTokens: strings.Fields(title),
		IssueNumber: strings.TrimSpace(issue),
		Publisher:   strings.TrimSpace(publisher),
	}
	if cmd.Flags().Lookup("year") != nil {
		tokens.Year, _ = cmd.Flags().GetInt("year")
	}
	return tokens
}

func queriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queries",
		Short: "Show the metadata search queries for a comic",
		Long: `Build the ordered list of candidate search queries the scanner would
send to the metadata service for the given cover details.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			title, _ := cmd.Flags().GetString("title")
			queries := matching.BuildQueries(tokensFromFlags(cmd, title))
			if queries == nil {
				queries = []model.CandidateQuery{}
			}

			return writeOutput(cmd, queries, func(w io.Writer) error {
				if len(queries) == 0 {
					writeLine(w, cli.FormatWarning("No queries: the title is empty."))
					return nil
				}
				rows := make([][]string, 0, len(queries))
				for _, q := range queries {
					rows = append(rows, []string{strconv.Itoa(q.Priority), string(q.Strategy), q.Query})
				}
				writeLine(w, cli.RenderTable([]string{"Priority", "Strategy", "Query"}, rows))
				return nil
			})
		},
	}

	cmd.Flags().String("title", "", "comic title (required)")
	cmd.Flags().Int("year", 0, "cover year")
	tokenFlags(cmd)
	addOutputFlag(cmd)
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func hashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash <title>",
		Short: "Print the match hash for a comic",
		Long: `Print the 12-character match hash that keys the verified match cache.
Title, issue, and publisher are normalized first, so "Saga", "saga " and
"SAGA!" hash identically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := matching.ComputeMatchHash(tokensFromFlags(cmd, args[0]).Key())
			_, err := fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	tokenFlags(cmd)
	return cmd
}
