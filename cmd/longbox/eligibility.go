package main

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/eligibility"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/spf13/cobra"
)

type eligibilityResult struct {
	SellerID string                    `json:"seller_id" yaml:"seller_id"`
	Snapshot model.EligibilitySnapshot `json:"snapshot" yaml:"snapshot"`
	Decision eligibility.Decision      `json:"decision" yaml:"decision"`
}

var reasonText = map[eligibility.Reason]string{
	eligibility.ReasonTooFewTransactions: "not enough completed sales",
	eligibility.ReasonNotVerified:        "account is not verified",
	eligibility.ReasonAccountTooNew:      "account is too new",
	eligibility.ReasonRecentDispute:      "has an open dispute inside the dispute window",
}

func eligibilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility <seller-id>",
		Short: "Check whether a seller may trade",
		Long: `Assemble the seller's account history and evaluate it against the
configured eligibility policy. Every failed check is listed.`,
		Args: cobra.ExactArgs(1),
		RunE: runEligibility,
	}
	addOutputFlag(cmd)
	return cmd
}

func runEligibility(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	policy := appCfg.Eligibility
	snapshot, err := store.GetEligibilitySnapshot(ctx, args[0], time.Now(), policy.DisputeWindow)
	if err != nil {
		return err
	}

	result := eligibilityResult{
		SellerID: args[0],
		Snapshot: snapshot,
		Decision: policy.Decide(snapshot),
	}

	return writeOutput(cmd, result, func(w io.Writer) error {
		writeLine(w, cli.RenderTable(
			[]string{"Check", "Value", "Required"},
			[][]string{
				{"Completed sales", strconv.Itoa(snapshot.CompletedTransactions), ">= " + strconv.Itoa(policy.MinCompletedTransactions)},
				{"Account age (days)", strconv.Itoa(snapshot.AccountAgeDays), ">= " + strconv.Itoa(policy.MinAccountAgeDays)},
				{"Verified", strconv.FormatBool(snapshot.IsVerified), "true"},
				{"Recent dispute", strconv.FormatBool(snapshot.HasRecentDispute), "false"},
				{"Manual override", strconv.FormatBool(snapshot.ManualOverride), "-"},
			},
		))

		switch {
		case result.Decision.Overridden:
			writeLine(w, cli.FormatWarning("Can trade: manual override in effect"))
		case result.Decision.CanTrade:
			writeLine(w, cli.FormatSuccess("Can trade"))
		default:
			reasons := make([]string, 0, len(result.Decision.Reasons))
			for _, r := range result.Decision.Reasons {
				reasons = append(reasons, reasonText[r])
			}
			writeLine(w, cli.FormatError("Cannot trade: "+strings.Join(reasons, "; ")))
		}
		return nil
	})
}
