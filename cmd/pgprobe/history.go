package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pgprobe/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded probe results",
		Long: `List recent probe results from the local history store, newest
first. The --target flag narrows the listing to one target.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := history.Open(cfg.History.Path, cfg.History.Keep)
			if err != nil {
				return err
			}
			defer st.Close()

			results, err := st.Recent(cmd.Context(), targetName, limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(results)
			}

			for _, res := range results {
				line := fmt.Sprintf("%s  %-16s  %-16s  %4dms",
					res.ProbedAt.Format(time.RFC3339), res.Status, res.Target, res.LatencyMs)
				if res.Message != "" {
					line += "  " + res.Message
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of results to show")
	return cmd
}
