package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/blob"
	"github.com/giuppep/rustore/internal/config"
	"github.com/giuppep/rustore/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rustore HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}
			if cmd.Flags().Changed("host") {
				cfg.BindHost = host
			}
			if cmd.Flags().Changed("port") {
				cfg.BindPort = port
			}
			if cfg.StoreRoot == "" {
				return fmt.Errorf("store root is required")
			}

			logger := slog.Default().With("component", "server")

			engine, err := blob.New(cfg.StoreRoot)
			if err != nil {
				return fmt.Errorf("opening store at %s: %w", cfg.StoreRoot, err)
			}

			path, err := config.GlobalPath()
			if err != nil {
				return err
			}
			if generated, err := config.EnsureAuthToken(cfg, path, logger); err != nil {
				return err
			} else if generated {
				logger.Info("no auth token was configured; generated and saved a new one")
			}

			srv := server.New(engine, cfg.AuthToken, logger)
			logger.Info("listening", "addr", cfg.Addr(), "store_root", cfg.StoreRoot)
			return srv.ListenAndServe(cfg.Addr())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "bind host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "bind port (overrides config)")
	return cmd
}
