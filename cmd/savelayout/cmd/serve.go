/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/ssargent/savelayout/pkg/api"
	"github.com/ssargent/savelayout/pkg/config"
	"github.com/ssargent/savelayout/pkg/logging"
)

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Serve the regions of the memory image over a REST API protected by an
API key, with Prometheus metrics on /metrics and Swagger docs on /swagger/.

Examples:
  savelayout serve
  savelayout serve --port 9000 --bind 0.0.0.0 --api-key mysecretkey`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("api-key") {
				cfg.Server.APIKey, _ = cmd.Flags().GetString("api-key")
			}

			if cfg.Server.APIKey == "" || cfg.Server.APIKey == "auto" {
				key, err := config.GenerateSecureKey(32)
				if err != nil {
					return err
				}
				cfg.Server.APIKey = key
				fmt.Fprintf(cmd.OutOrStdout(), "🔑 Generated API key for this run: %s\n", key)
			}

			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			srv := api.NewServer(s.Accessor, api.ServerConfig{
				Port:        cfg.Server.Port,
				Bind:        cfg.Server.Bind,
				APIKey:      cfg.Server.APIKey,
				CORSOrigins: cfg.Server.CORSOrigins,
			}, api.NewMetrics(reg),
				api.WithHistory(s.History()),
				api.WithGatherer(reg),
				api.WithLogger(logging.Logger()))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "🚀 Serving %s on %s\n", cfg.Memory.Path, srv.Addr())
			return container.GetServerFactory().CreateServerStarter().StartServer(ctx, srv)
		},
	}

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key for authentication (overrides the config)")
	return serveCmd
}
