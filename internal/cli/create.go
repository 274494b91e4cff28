package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/etherian3/crowd-fundapp/pkg/client"
)

func createCreateCmd() *cobra.Command {
	var title string
	var description string
	var target string
	var deadline string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a campaign",
		Long: `Create a new campaign and wait for the transaction to confirm.

The server-side wallet must be connected ('crowdfund wallet connect').
The target is a decimal amount in native units; the deadline is a
calendar day (YYYY-MM-DD) strictly in the future.

EXAMPLES:
  crowdfund create --title "Community garden" \
    --description "Raised beds for the block" \
    --target 1.5 --deadline 2026-12-31
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			return runCreate(c, client.CreateCampaignRequest{
				Title:       title,
				Description: description,
				Target:      target,
				Deadline:    deadline,
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "campaign title (required)")
	cmd.Flags().StringVar(&description, "description", "", "campaign description (required)")
	cmd.Flags().StringVar(&target, "target", "", "funding target in native units (required)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline day, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("description")
	_ = cmd.MarkFlagRequired("target")
	_ = cmd.MarkFlagRequired("deadline")

	return cmd
}

func runCreate(c *client.Client, req client.CreateCampaignRequest) error {
	fmt.Println("Submitting campaign, waiting for confirmation...")

	receipt, err := c.CreateCampaign(context.Background(), req)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	fmt.Println("✅ Campaign created")
	fmt.Printf("   Tx:    %s\n", receipt.TxHash)
	fmt.Printf("   Block: %d\n", receipt.BlockNumber)
	fmt.Printf("   Gas:   %d\n", receipt.GasUsed)
	return nil
}
