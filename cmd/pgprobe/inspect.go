package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pgprobe/internal/probe"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Probe plus a schema summary",
		Long: `Connect to the target and report session facts: current database
and user, server version, and the public tables. All queries run in
one read-only transaction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := cfg.TargetByName(targetName)
			if err != nil {
				return err
			}

			insp, err := probe.New(cfg.Probe).Inspect(cmd.Context(), target)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(insp)
			}

			fmt.Printf("Database: %s\n", insp.Database)
			fmt.Printf("User:     %s\n", insp.User)
			fmt.Printf("Version:  %s\n", insp.ServerVersion)
			fmt.Printf("Tables:   %d in schema public\n", insp.TableCount)
			for _, name := range insp.Tables {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}
}
