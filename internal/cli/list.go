package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/etherian3/crowd-fundapp/pkg/client"
)

func createListCmd() *cobra.Command {
	var filter string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns",
		Long: `List campaigns known to the server.

The filter narrows the list: all, active, finished, or mine
(mine requires a connected wallet).

EXAMPLES:
  # List all campaigns
  crowdfund list

  # List only active campaigns
  crowdfund list --filter active

  # List your own campaigns
  crowdfund list --filter mine

  # Output as JSON
  crowdfund list --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			return listCampaigns(c, effectiveFilter(filter), limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "filter: all, active, finished, mine")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of campaigns to show (0 = all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

// effectiveFilter applies the project config default when no flag is given
func effectiveFilter(flag string) string {
	if flag != "" {
		return flag
	}
	if config := loadProjectConfigSilent(); config != nil && config.DefaultFilter != "" {
		return config.DefaultFilter
	}
	return ""
}

func listCampaigns(c *client.Client, filter string, limit int, jsonOutput bool) error {
	ctx := context.Background()

	campaigns, err := c.ListCampaigns(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list campaigns: %w", err)
	}

	if limit > 0 && len(campaigns) > limit {
		campaigns = campaigns[:limit]
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"campaigns": campaigns,
			"count":     len(campaigns),
		})
	}

	if len(campaigns) == 0 {
		fmt.Println("No campaigns found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tOWNER\tTARGET\tRAISED\tFUNDED\tDAYS LEFT")
	for _, c := range campaigns {
		days := fmt.Sprintf("%d", c.DaysRemaining)
		if c.Ended {
			days = "ended"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s%%\t%s\n",
			c.ID, c.Title, truncateAddress(c.Owner), c.Target, c.AmountCollected, c.PercentFunded, days)
	}
	w.Flush()

	return nil
}
