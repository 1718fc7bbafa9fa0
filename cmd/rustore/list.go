package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/config"
	"github.com/giuppep/rustore/internal/ref"
)

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all references in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, cfg, jsonOutput)
		},
	}
}

func runList(cmd *cobra.Command, cfg *config.Config, jsonOutput *bool) error {
	engine, err := openStore(cfg)
	if err != nil {
		return err
	}

	type entry struct {
		Ref  string `json:"ref"`
		Size int64  `json:"size"`
	}
	var entries []entry

	err = engine.List(cmd.Context(), func(r ref.Reference) error {
		meta, err := engine.Head(cmd.Context(), r)
		if err != nil {
			return err
		}
		entries = append(entries, entry{Ref: r.String(), Size: meta.Size})
		return nil
	})
	if err != nil {
		return err
	}

	if *jsonOutput {
		return writeJSON(entries)
	}
	for _, e := range entries {
		if err := writePlain("%s  %s\n", e.Ref, humanize.Bytes(uint64(e.Size))); err != nil {
			return err
		}
	}
	return nil
}
