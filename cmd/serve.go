package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/rigwatch/custodian/internal/config"
	"github.com/rigwatch/custodian/internal/providers"
	"github.com/rigwatch/custodian/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the custodian HTTP server exposing the controller's operations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fx.New(
			fx.Supply(cfg),

			fx.Provide(
				providers.ProvideRegistry,
				providers.ProvideBackends,
				providers.ProvideController,
				server.New,
			),

			fx.Invoke(func(lc fx.Lifecycle, srv *server.Server) {
				lc.Append(fx.Hook{
					OnStart: func(context.Context) error {
						go func() {
							if err := srv.Start(); err != nil {
								panic(err)
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return srv.Shutdown(ctx)
					},
				})
			}),
		)

		app.Run()
		return nil
	},
}

func init() {
	// Server flags
	serveCmd.Flags().String("host", "0.0.0.0", "Server host")
	serveCmd.Flags().Int("port", 8080, "Server port")

	// Rig backend flags
	serveCmd.Flags().String("rig-mode", config.ModeMemory, "Rig backend (memory or evm)")
	serveCmd.Flags().String("rig-address", "", "Target rig contract address")
	serveCmd.Flags().String("rig-rpc-url", "", "EVM RPC endpoint (evm mode)")
	serveCmd.Flags().String("rig-private-key", "", "Hex private key of the custody account (evm mode)")

	// Role flags
	serveCmd.Flags().String("owner", "", "Owner address")
	serveCmd.Flags().StringSlice("managers", nil, "Manager addresses")

	// Bind flags to viper
	cobra.CheckErr(v.BindPFlag("server.host", serveCmd.Flags().Lookup("host")))
	cobra.CheckErr(v.BindPFlag("server.port", serveCmd.Flags().Lookup("port")))

	cobra.CheckErr(v.BindPFlag("rig.mode", serveCmd.Flags().Lookup("rig-mode")))
	cobra.CheckErr(v.BindPFlag("rig.address", serveCmd.Flags().Lookup("rig-address")))
	cobra.CheckErr(v.BindPFlag("rig.rpc_url", serveCmd.Flags().Lookup("rig-rpc-url")))
	cobra.CheckErr(v.BindPFlag("rig.private_key", serveCmd.Flags().Lookup("rig-private-key")))

	cobra.CheckErr(v.BindPFlag("roles.owner", serveCmd.Flags().Lookup("owner")))
	cobra.CheckErr(v.BindPFlag("roles.managers", serveCmd.Flags().Lookup("managers")))

	rootCmd.AddCommand(serveCmd)
}
