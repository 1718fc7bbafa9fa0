package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/config"
)

func newAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Add one or more files to the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, cfg, jsonOutput, args)
		},
	}
}

func runAdd(cmd *cobra.Command, cfg *config.Config, jsonOutput *bool, paths []string) error {
	engine, err := openStore(cfg)
	if err != nil {
		return err
	}

	type result struct {
		Path string `json:"path"`
		Ref  string `json:"ref"`
	}
	results := make([]result, 0, len(paths))

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		added, err := engine.Add(cmd.Context(), f, filepath.Base(path))
		f.Close()
		if err != nil {
			return err
		}
		results = append(results, result{Path: path, Ref: added.String()})
	}

	if *jsonOutput {
		return writeJSON(results)
	}
	for _, r := range results {
		if err := writePlain("%s  %s\n", r.Ref, r.Path); err != nil {
			return err
		}
	}
	return nil
}
