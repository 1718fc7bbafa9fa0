package main

import (
	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/config"
)

func newTokenCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the server's auth token",
	}
	cmd.AddCommand(newTokenGenerateCmd(cfg))
	return cmd
}

func newTokenGenerateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Mint and persist a new auth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GlobalPath()
			if err != nil {
				return err
			}
			token, err := config.GenerateToken(cfg, path)
			if err != nil {
				return err
			}
			return writePlain("%s\n", token)
		},
	}
}
