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

func createSubmissionsCmd() *cobra.Command {
	var account string
	var kind string
	var status string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List the transaction audit log",
		Long: `List recorded transaction submissions, newest first.

EXAMPLES:
  # Show recent submissions
  crowdfund submissions

  # Show only failed submissions
  crowdfund submissions --status failed

  # Show donations from one account
  crowdfund submissions --kind donate --account 0xabc...
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			return listSubmissions(c, client.SubmissionFilter{
				Account: account,
				Kind:    kind,
				Status:  status,
				Limit:   limit,
			}, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "filter by account address")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind: create, donate")
	cmd.Flags().StringVar(&status, "status", "", "filter by status: pending, submitted, confirmed, failed")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func listSubmissions(c *client.Client, filter client.SubmissionFilter, jsonOutput bool) error {
	subs, err := c.ListSubmissions(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list submissions: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"submissions": subs,
			"count":       len(subs),
		})
	}

	if len(subs) == 0 {
		fmt.Println("No submissions found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tKIND\tCAMPAIGN\tAMOUNT\tSTATUS\tTX")
	for _, s := range subs {
		campaign := fmt.Sprintf("%d", s.CampaignID)
		if s.CampaignID < 0 {
			campaign = "-"
		}
		status := s.Status
		if s.FailureKind != "" {
			status = fmt.Sprintf("%s (%s)", s.Status, s.FailureKind)
		}
		tx := s.TxHash
		if tx != "" {
			tx = truncateAddress(tx)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.CreatedAt.UTC().Format("2006-01-02 15:04"), s.Kind, campaign, s.Amount, status, tx)
	}
	w.Flush()

	return nil
}
