package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/MahdiFarnaghi/intelli-geo/internal/gateway"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		bind    string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server for the GIS host plugin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if port != 0 {
				a.cfg.Gateway.Port = port
			}
			if bind != "" {
				a.cfg.Gateway.Bind = bind
			}

			srv := gateway.New(a.cfg.Gateway, a.manager, a.conversations,
				a.credentials, a.provider, log)

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override the gateway bind address")
	cmd.Flags().StringVar(&envFile, "environment", "", "JSON snapshot of the host project to preload")

	return cmd
}
