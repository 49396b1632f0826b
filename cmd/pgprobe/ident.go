package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pgprobe/internal/probe"
)

func newIdentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ident",
		Short: "Read the replication identity",
		Long: `Open a logical replication session against the target and run
IDENTIFY_SYSTEM. Requires a user with the REPLICATION attribute.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := cfg.TargetByName(targetName)
			if err != nil {
				return err
			}

			ident, err := probe.New(cfg.Probe).Identify(cmd.Context(), target)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(ident)
			}

			fmt.Printf("System ID: %s\n", ident.SystemID)
			fmt.Printf("Timeline:  %d\n", ident.Timeline)
			fmt.Printf("XLog pos:  %s\n", ident.XLogPos)
			fmt.Printf("Database:  %s\n", ident.Database)
			return nil
		},
	}
}
