package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/blob"
	"github.com/giuppep/rustore/internal/config"
	"github.com/giuppep/rustore/internal/ref"
)

func newCheckCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var showMetadata bool
	var verify bool

	cmd := &cobra.Command{
		Use:   "check <ref>...",
		Short: "Report whether each reference is present, missing, or invalid",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, cfg, jsonOutput, args, showMetadata, verify)
		},
	}

	cmd.Flags().BoolVar(&showMetadata, "metadata", false, "print sidecar metadata for present blobs")
	cmd.Flags().BoolVar(&verify, "verify", false, "re-verify content digest before reporting presence")
	return cmd
}

type checkResult struct {
	Ref      string         `json:"ref"`
	Status   string         `json:"status"`
	Metadata *blob.Metadata `json:"metadata,omitempty"`
}

func runCheck(cmd *cobra.Command, cfg *config.Config, jsonOutput *bool, args []string, showMetadata, verify bool) error {
	engine, err := openStore(cfg)
	if err != nil {
		return err
	}

	var results []checkResult
	for _, arg := range args {
		r, err := ref.Parse(arg)
		if err != nil {
			results = append(results, checkResult{Ref: arg, Status: "INVALID"})
			continue
		}

		results = append(results, checkOne(cmd, engine, r, showMetadata, verify))
	}

	if *jsonOutput {
		return writeJSON(results)
	}
	for _, res := range results {
		line := res.Ref + " " + res.Status
		if err := writePlain("%s\n", line); err != nil {
			return err
		}
		if res.Metadata != nil {
			if err := writePlain("  filename: %s\n  mime_type: %s\n  size: %d\n  created: %s\n",
				res.Metadata.Filename, res.Metadata.MIMEType, res.Metadata.Size, res.Metadata.Created); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkOne(cmd *cobra.Command, engine *blob.Engine, r ref.Reference, showMetadata, verify bool) checkResult {
	meta, err := engine.Head(cmd.Context(), r)
	if errors.Is(err, blob.ErrNotFound) {
		return checkResult{Ref: r.String(), Status: "MISSING"}
	}
	if err != nil {
		return checkResult{Ref: r.String(), Status: "INVALID"}
	}

	if verify {
		if err := engine.Verify(cmd.Context(), r); err != nil {
			return checkResult{Ref: r.String(), Status: "INVALID"}
		}
	}

	res := checkResult{Ref: r.String(), Status: "PRESENT"}
	if showMetadata {
		res.Metadata = &meta
	}
	return res
}
