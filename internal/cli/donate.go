package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/etherian3/crowd-fundapp/pkg/client"
)

func createDonateCmd() *cobra.Command {
	var amount string

	cmd := &cobra.Command{
		Use:   "donate <id>",
		Short: "Donate to a campaign",
		Long: `Donate to a campaign and wait for the transaction to confirm.

The server-side wallet must be connected ('crowdfund wallet connect').
The amount is a decimal in native units; without --amount the
donate_amount from crowdfund.toml is used.

EXAMPLES:
  # Donate 0.5 to campaign 3
  crowdfund donate 3 --amount 0.5

  # Donate the project default amount
  crowdfund donate 3
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid campaign id %q", args[0])
			}

			if amount == "" {
				if config := loadProjectConfigSilent(); config != nil {
					amount = config.DonateAmount
				}
			}
			if amount == "" {
				return fmt.Errorf("no amount given (use --amount or set donate_amount in crowdfund.toml)")
			}

			c := client.New(getServer(), getAPIKey())
			return runDonate(c, id, amount)
		},
	}

	cmd.Flags().StringVar(&amount, "amount", "", "donation amount in native units")

	return cmd
}

func runDonate(c *client.Client, id int64, amount string) error {
	fmt.Printf("Donating %s to campaign %d, waiting for confirmation...\n", amount, id)

	receipt, err := c.Donate(context.Background(), id, amount)
	if err != nil {
		return fmt.Errorf("donation failed: %w", err)
	}

	fmt.Println("✅ Donation confirmed")
	fmt.Printf("   Tx:    %s\n", receipt.TxHash)
	fmt.Printf("   Block: %d\n", receipt.BlockNumber)
	fmt.Printf("   Gas:   %d\n", receipt.GasUsed)
	return nil
}

func createRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Force a reconciliation against the chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			result, err := c.Refresh(context.Background())
			if err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}
			fmt.Printf("✅ Reconciled %d campaign(s) at %s\n",
				result.Campaigns, result.ReconciledAt.UTC().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}
