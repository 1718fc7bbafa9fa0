package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giuppep/rustore/internal/blob"
	"github.com/giuppep/rustore/internal/config"
	"github.com/giuppep/rustore/internal/ref"
)

func newDeleteCmd(cfg *config.Config) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "delete <ref>...",
		Short: "Delete one or more blobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, cfg, args, interactive)
		},
	}

	cmd.Flags().BoolVar(&interactive, "interactive", false, "confirm each deletion")
	return cmd
}

// runDelete processes each argument independently: a hash that fails
// ref.Parse is reported INVALID on stderr and skipped, it does not
// abort refs still to come in the same invocation.
func runDelete(cmd *cobra.Command, cfg *config.Config, args []string, interactive bool) error {
	engine, err := openStore(cfg)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for _, arg := range args {
		r, err := ref.Parse(arg)
		if err != nil {
			if err := writeErrPlain("%s\t\tINVALID\n", arg); err != nil {
				return err
			}
			continue
		}

		if interactive && !confirmDelete(reader, r.String()) {
			if err := writePlain("skipped %s\n", r); err != nil {
				return err
			}
			continue
		}

		if err := engine.Delete(cmd.Context(), r); err != nil {
			if errors.Is(err, blob.ErrNotFound) {
				if err := writePlain("missing %s\n", r); err != nil {
					return err
				}
				continue
			}
			if err := writeErrPlain("%s\t\tERROR: %v\n", r, err); err != nil {
				return err
			}
			continue
		}
		if err := writePlain("deleted %s\n", r); err != nil {
			return err
		}
	}
	return nil
}

func confirmDelete(reader *bufio.Reader, refStr string) bool {
	fmt.Fprintf(os.Stdout, "delete %s? [y/N] ", refStr)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
