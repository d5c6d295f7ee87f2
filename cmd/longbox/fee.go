package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/spf13/cobra"
)

type feeResult struct {
	model.FeeBreakdown `yaml:",inline"`
	PlatformRate       float64 `json:"platform_rate" yaml:"platform_rate"`
}

func feeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee <gross>",
		Short: "Calculate the fee breakdown for a sale",
		Long: `Split a sale's gross amount into platform fee, processor fee, and the
seller's net payout.

The platform rate comes from --rate when given, otherwise from the seller's
custom rate (--seller), otherwise from the configured fee schedule. --rate
accepts a fraction ("0.03") or a percentage ("3%").`,
		Args: cobra.ExactArgs(1),
		RunE: runFee,
	}

	cmd.Flags().String("rate", "", "platform rate override (e.g. 0.03 or 3%)")
	cmd.Flags().String("seller", "", "use this seller's custom rate")
	addOutputFlag(cmd)

	return cmd
}

func runFee(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	gross, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid gross amount %q: %w", args[0], err)
	}

	calc, err := newCalculator()
	if err != nil {
		return err
	}

	rateFlag, _ := cmd.Flags().GetString("rate")
	sellerID, _ := cmd.Flags().GetString("seller")

	var override *float64
	if rateFlag != "" {
		raw, _ := json.Marshal(rateFlag)
		override, err = fees.ParseRateOverride(raw)
		if err != nil {
			slog.Warn("Rejected rate override", "rate", rateFlag, "error", err)
			return err
		}
	} else if sellerID != "" {
		store, err := initStorage(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		seller, err := store.GetSeller(ctx, sellerID)
		if err != nil {
			return err
		}
		override = seller.CustomFeeRate
	}

	breakdown, err := calc.Calculate(gross, override)
	if err != nil {
		return err
	}

	rate := calc.Schedule().PlatformRate
	if override != nil {
		rate = *override
	}
	result := feeResult{FeeBreakdown: breakdown, PlatformRate: rate}

	return writeOutput(cmd, result, func(w io.Writer) error {
		schedule := calc.Schedule()
		writeLine(w, cli.FormatTitle(cli.MoneyIcon+" Fee breakdown"))
		writeLine(w, cli.RenderTable(
			[]string{"Line", "Amount"},
			[][]string{
				{"Gross", fees.FormatCents(breakdown.GrossAmountCents)},
				{fmt.Sprintf("Platform fee (%.2f%%)", rate*100), "-" + fees.FormatCents(breakdown.PlatformFeeCents)},
				{fmt.Sprintf("Processor fee (%.2f%% + %s)", schedule.ProcessorRate*100, fees.FormatCents(schedule.ProcessorFlatCents)),
					"-" + fees.FormatCents(breakdown.ProcessorFeeCents)},
				{"Net payout", fees.FormatCents(breakdown.NetCents)},
			},
		))
		if breakdown.NetCents < 0 {
			writeLine(w, cli.FormatWarning("Fees exceed the sale amount; the seller would lose money."))
		}
		return nil
	})
}
