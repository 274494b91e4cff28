package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/etherian3/crowd-fundapp/pkg/client"
)

func createInfoCmd() *cobra.Command {
	var jsonOutput bool
	var showDonations bool

	cmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show campaign details",
		Long: `Show details for a single campaign by its id.

EXAMPLES:
  # Show campaign 3
  crowdfund info 3

  # Include the donation list
  crowdfund info 3 --donations

  # Output as JSON
  crowdfund info 3 --json
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid campaign id %q", args[0])
			}
			c := client.New(getServer(), getAPIKey())
			return showCampaign(c, id, showDonations, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&showDonations, "donations", false, "include the donation list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func showCampaign(c *client.Client, id int64, showDonations, jsonOutput bool) error {
	ctx := context.Background()

	campaign, err := c.GetCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get campaign: %w", err)
	}

	var donations []client.Donation
	if showDonations {
		donations, err = c.Donations(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get donations: %w", err)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		out := map[string]any{"campaign": campaign}
		if showDonations {
			out["donations"] = donations
		}
		return enc.Encode(out)
	}

	fmt.Printf("Campaign #%d: %s\n\n", campaign.ID, campaign.Title)
	fmt.Printf("  Owner:     %s\n", campaign.Owner)
	fmt.Printf("  Target:    %s\n", campaign.Target)
	fmt.Printf("  Raised:    %s (%s%%)\n", campaign.AmountCollected, campaign.PercentFunded)
	fmt.Printf("  Deadline:  %s\n", time.Unix(campaign.Deadline, 0).UTC().Format("2006-01-02"))
	if campaign.Ended {
		fmt.Println("  Status:    ended")
	} else {
		fmt.Printf("  Status:    active (%d day(s) left)\n", campaign.DaysRemaining)
	}
	if campaign.Description != "" {
		fmt.Printf("\n  %s\n", campaign.Description)
	}

	if showDonations {
		fmt.Println()
		if len(donations) == 0 {
			fmt.Println("No donations yet")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "DONATOR\tAMOUNT")
		for _, d := range donations {
			fmt.Fprintf(w, "%s\t%s\n", truncateAddress(d.Donator), d.Donation)
		}
		w.Flush()
		fmt.Printf("\n%d donation(s)\n", len(donations))
	}

	return nil
}
