package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/blob"
	"github.com/giuppep/rustore/internal/config"
	"github.com/giuppep/rustore/internal/ref"
)

func newGetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <ref>",
		Short: "Stream a blob's content to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, cfg, args[0])
		},
	}
}

func runGet(cmd *cobra.Command, cfg *config.Config, refArg string) error {
	r, err := ref.Parse(refArg)
	if err != nil {
		return err
	}

	engine, err := openStore(cfg)
	if err != nil {
		return err
	}

	_, rc, err := engine.Get(cmd.Context(), r, blob.GetOptions{})
	if err != nil {
		return fmt.Errorf("getting %s: %w", r, err)
	}
	defer rc.Close()

	_, err = io.Copy(os.Stdout, rc)
	return err
}
