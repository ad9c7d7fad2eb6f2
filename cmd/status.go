package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rigwatch/custodian/pkg/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the controller's current status",
	Long:  `Query a running custodian server and print its status aggregate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := cfg.Monitor.ServerURL
		if cmd.Flags().Changed("server-url") {
			url, _ = cmd.Flags().GetString("server-url")
		}

		c, err := client.New(url)
		if err != nil {
			return fmt.Errorf("creating API client: %w", err)
		}

		status, err := c.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching status: %w", err)
		}

		cmd.Printf("Rig:              %s\n", status.RigAddress)
		cmd.Printf("Auto mining:      %v\n", status.Enabled)
		cmd.Printf("Executor phase:   %s\n", status.Phase)
		cmd.Printf("Current price:    %s\n", status.CurrentPrice)
		cmd.Printf("Epoch:            %d\n", status.Epoch)
		cmd.Printf("Token balance:    %s\n", status.TokenBalance)
		if status.NativeBalance != "" {
			cmd.Printf("Native balance:   %s\n", status.NativeBalance)
		}
		cmd.Printf("Price condition:  %v\n", status.PriceOK)
		cmd.Printf("Time condition:   %v\n", status.TimeOK)
		if status.LastMint != nil {
			cmd.Printf("Last mint:        %s\n", status.LastMint)
			cmd.Printf("Cooldown until:   %s\n", status.NextCooldownEligible)
			cmd.Printf("Forced mint at:   %s\n", status.NextTimeBasedEligible)
		} else {
			cmd.Println("Last mint:        never")
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().String("server-url", "", "Custodian server URL (overrides monitor.server_url)")

	rootCmd.AddCommand(statusCmd)
}
