package main

import (
	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	var logLevel string
	var storeRoot string

	cmd := &cobra.Command{
		Use:   "rustore",
		Short: "Rustore is a content-addressable blob store",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("store-root") {
				cfg.StoreRoot = storeRoot
			}
			return configureLoggerForCLI(logLevel, cfg.LogLevel)
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&storeRoot, "store-root", "", "store root directory (overrides config)")

	cmd.AddCommand(
		newServeCmd(cfg),
		newAddCmd(cfg, &jsonOutput),
		newGetCmd(cfg),
		newCheckCmd(cfg, &jsonOutput),
		newDeleteCmd(cfg),
		newListCmd(cfg, &jsonOutput),
		newTokenCmd(cfg),
	)

	return cmd
}
