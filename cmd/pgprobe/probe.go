package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"pgprobe/internal/history"
	"pgprobe/internal/probe"
)

func newProbeCmd() *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe the target once",
		Long: `Run one connect-query-disconnect attempt against the target.
Prints OK and the server version on success, the client's error text
on failure. Exits 1 on any failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := cfg.TargetByName(targetName)
			if err != nil {
				return err
			}

			res := probe.New(cfg.Probe).Run(cmd.Context(), target)

			if record {
				st, err := history.Open(cfg.History.Path, cfg.History.Keep)
				if err != nil {
					return err
				}
				if err := st.Record(cmd.Context(), res); err != nil {
					slog.Error("Failed to record result", "error", err)
				}
				st.Close()
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else if res.Status.OK() {
				fmt.Println("OK")
				fmt.Println(res.ServerVersion)
			} else {
				fmt.Println(res.Message)
			}

			if !res.Status.OK() {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&record, "record", false, "append the result to the local history store")
	return cmd
}
