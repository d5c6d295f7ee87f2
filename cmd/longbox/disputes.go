package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/spf13/cobra"
)

func disputesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disputes",
		Short: "Record buyer disputes",
		Long: `Open and resolve buyer disputes. An open dispute inside the configured
dispute window blocks the seller from trading.`,
	}

	cmd.AddCommand(openDisputeCmd())
	cmd.AddCommand(resolveDisputeCmd())

	return cmd
}

func openDisputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <seller-id>",
		Short: "Open a dispute against a seller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			saleID, _ := cmd.Flags().GetString("sale")
			reason, _ := cmd.Flags().GetString("reason")

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			dispute := model.Dispute{
				SellerID: args[0],
				SaleID:   saleID,
				Reason:   reason,
				Status:   model.DisputeStatusOpen,
				OpenedAt: time.Now(),
			}
			if _, err := store.GetSeller(ctx, dispute.SellerID); err != nil {
				return err
			}
			if err := store.SaveDispute(ctx, &dispute); err != nil {
				return err
			}

			writeLine(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("Opened dispute %s against %s", dispute.ID, dispute.SellerID)))
			return nil
		},
	}

	cmd.Flags().String("sale", "", "sale the dispute concerns")
	cmd.Flags().String("reason", "", "short description")

	return cmd
}

func resolveDisputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <dispute-id>",
		Short: "Resolve an open dispute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.ResolveDispute(ctx, args[0], time.Now()); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), cli.FormatSuccess("Resolved dispute "+args[0]))
			return nil
		},
	}
}
