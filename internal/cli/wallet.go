package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/etherian3/crowd-fundapp/pkg/client"
)

func createWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Wallet session commands",
	}

	cmd.AddCommand(createWalletStatusCmd())
	cmd.AddCommand(createWalletConnectCmd())
	cmd.AddCommand(createWalletDisconnectCmd())
	cmd.AddCommand(createWalletBalanceCmd())

	return cmd
}

func createWalletStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show wallet and reconciliation status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			status, err := c.WalletStatus(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			if status.WalletConnected {
				fmt.Printf("Wallet:     connected (%s)\n", status.Account)
			} else {
				fmt.Println("Wallet:     disconnected")
			}
			fmt.Printf("Workflow:   %s\n", status.State)
			if status.LastError != "" {
				fmt.Printf("Last error: %s\n", status.LastError)
			}
			fmt.Printf("Campaigns:  %d\n", status.Campaigns)
			if !status.ReconciledAt.IsZero() {
				fmt.Printf("Reconciled: %s\n", status.ReconciledAt.UTC().Format("2006-01-02 15:04:05"))
			} else {
				fmt.Println("Reconciled: never")
			}
			fmt.Printf("Min donate: %s\n", status.DonationFloor)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func createWalletConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect",
		Short: "Unlock the server-side wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			account, err := c.Connect(context.Background())
			if err != nil {
				return fmt.Errorf("connect failed: %w", err)
			}
			fmt.Printf("✅ Wallet connected: %s\n", account)
			return nil
		},
	}
}

func createWalletDisconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect",
		Short: "Lock the server-side wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			if err := c.Disconnect(context.Background()); err != nil {
				return fmt.Errorf("disconnect failed: %w", err)
			}
			fmt.Println("✅ Wallet disconnected")
			return nil
		},
	}
}

func createWalletBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the connected account's balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(getServer(), getAPIKey())
			balance, err := c.Balance(context.Background())
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}
			fmt.Printf("Balance: %s\n", balance)
			return nil
		},
	}
}
