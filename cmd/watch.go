package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rigwatch/custodian/internal/monitor"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll a custodian server and mint whenever eligible",
	Long: `Run the monitor loop against a running custodian server: poll the
eligibility endpoint on an interval and trigger a mint as the configured
manager address whenever the conditions hold. Stops on permanent failures
(authorization, validation); guard failures and rig rejections are retried
on the next poll.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := monitor.New(cfg.Monitor)
		if err != nil {
			return fmt.Errorf("configuring monitor: %w", err)
		}
		return m.Run(cmd.Context())
	},
}

func init() {
	watchCmd.Flags().String("server-url", "http://localhost:8080", "Custodian server URL")
	watchCmd.Flags().Duration("interval", 0, "Eligibility poll interval")
	watchCmd.Flags().String("caller", "", "Manager address to mint as")
	watchCmd.Flags().String("recipient", "", "Recipient of mined output (defaults to the controller account)")

	cobra.CheckErr(v.BindPFlag("monitor.server_url", watchCmd.Flags().Lookup("server-url")))
	cobra.CheckErr(v.BindPFlag("monitor.interval", watchCmd.Flags().Lookup("interval")))
	cobra.CheckErr(v.BindPFlag("monitor.caller", watchCmd.Flags().Lookup("caller")))
	cobra.CheckErr(v.BindPFlag("monitor.recipient", watchCmd.Flags().Lookup("recipient")))

	rootCmd.AddCommand(watchCmd)
}
