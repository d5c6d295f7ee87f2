package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Veraticus/longbox/internal/cli"
	"github.com/Veraticus/longbox/internal/common"
	"github.com/Veraticus/longbox/internal/fees"
	"github.com/Veraticus/longbox/internal/model"
	"github.com/Veraticus/longbox/internal/service"
	"github.com/spf13/cobra"
)

func sellersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sellers",
		Short: "Manage seller accounts",
		Long:  `Add, list, and update the seller accounts sales and disputes belong to.`,
	}

	cmd.AddCommand(addSellerCmd())
	cmd.AddCommand(listSellersCmd())
	cmd.AddCommand(setRateCmd())
	cmd.AddCommand(verifySellerCmd())
	cmd.AddCommand(overrideSellerCmd())

	return cmd
}

func addSellerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <display-name>",
		Short: "Add a seller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, _ := cmd.Flags().GetString("id")
			verified, _ := cmd.Flags().GetBool("verified")
			since, _ := cmd.Flags().GetString("since")

			seller := model.Seller{ID: id, DisplayName: args[0], Verified: verified}
			if since != "" {
				created, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q: %w", since, err)
				}
				seller.CreatedAt = created
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if id != "" {
				if _, err := store.GetSeller(ctx, id); err == nil {
					return fmt.Errorf("seller %q: %w", id, common.ErrDuplicateEntry)
				} else if !errors.Is(err, common.ErrNotFound) {
					return err
				}
			}

			if err := store.SaveSeller(ctx, &seller); err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added seller %s (%s)", seller.DisplayName, seller.ID)))
			return nil
		},
	}

	cmd.Flags().String("id", "", "seller ID (generated when omitted)")
	cmd.Flags().Bool("verified", false, "mark the seller as verified")
	cmd.Flags().String("since", "", "account creation date (YYYY-MM-DD, default today)")

	return cmd
}

func listSellersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sellers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sellers, err := store.ListSellers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sellers: %w", err)
			}

			return writeOutput(cmd, sellers, func(w io.Writer) error {
				if len(sellers) == 0 {
					writeLine(w, cli.FormatInfo("No sellers found. Use 'longbox sellers add' to create one."))
					return nil
				}
				rows := make([][]string, 0, len(sellers))
				for _, s := range sellers {
					rate := "-"
					if s.CustomFeeRate != nil {
						rate = strconv.FormatFloat(*s.CustomFeeRate*100, 'f', 2, 64) + "%"
					}
					rows = append(rows, []string{
						s.ID, s.DisplayName,
						strconv.FormatBool(s.Verified),
						rate,
						strconv.FormatBool(s.ManualOverride),
						s.CreatedAt.Format("2006-01-02"),
					})
				}
				writeLine(w, cli.RenderTable([]string{"ID", "Name", "Verified", "Rate", "Override", "Since"}, rows))
				return nil
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func setRateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-rate <seller-id> <rate>",
		Short: "Set or clear a seller's custom platform rate",
		Long: `Set the platform rate used for this seller's sales. The rate may be a
fraction ("0.03"), a percentage ("3%"), or "none" to fall back to the
configured schedule.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var rate *float64
			if args[1] != "none" {
				raw, _ := json.Marshal(args[1])
				parsed, err := fees.ParseRateOverride(raw)
				if err != nil {
					return err
				}
				rate = parsed
			}

			return updateSeller(cmd, args[0], func(s *model.Seller) string {
				s.CustomFeeRate = rate
				if rate == nil {
					return "now uses the standard schedule"
				}
				return fmt.Sprintf("platform rate set to %.2f%%", *rate*100)
			})
		},
	}
	return cmd
}

func verifySellerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <seller-id>",
		Short: "Mark a seller as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			revoke, _ := cmd.Flags().GetBool("revoke")
			return updateSeller(cmd, args[0], func(s *model.Seller) string {
				s.Verified = !revoke
				if revoke {
					return "verification revoked"
				}
				return "verified"
			})
		},
	}
	cmd.Flags().Bool("revoke", false, "remove verification instead")
	return cmd
}

func overrideSellerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override <seller-id>",
		Short: "Allow a seller to trade regardless of eligibility checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remove, _ := cmd.Flags().GetBool("clear")
			return updateSeller(cmd, args[0], func(s *model.Seller) string {
				s.ManualOverride = !remove
				if remove {
					return "manual override cleared"
				}
				return "manual override enabled"
			})
		},
	}
	cmd.Flags().Bool("clear", false, "remove the override instead")
	return cmd
}

// updateSeller loads a seller, applies change, and saves it.
func updateSeller(cmd *cobra.Command, id string, change func(*model.Seller) string) error {
	ctx := cmd.Context()
	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return applySellerChange(cmd, store, id, change)
}

func applySellerChange(cmd *cobra.Command, store service.Storage, id string, change func(*model.Seller) string) error {
	ctx := cmd.Context()
	seller, err := store.GetSeller(ctx, id)
	if err != nil {
		return err
	}

	msg := change(seller)
	if err := store.SaveSeller(ctx, seller); err != nil {
		return err
	}

	writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s: %s", seller.DisplayName, msg)))
	return nil
}
