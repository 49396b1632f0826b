package main

import (
	"os"

	"github.com/spf13/cobra"

	"pgprobe/internal/config"
	"pgprobe/internal/logging"
)

var (
	// Version info (set by ldflags)
	version = "dev"

	// Flags
	configPath string
	targetName string
	jsonOutput bool

	cfg *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pgprobe",
		Short: "PostgreSQL connectivity probe",
		Long: `pgprobe checks that a PostgreSQL endpoint accepts connections and
answers queries. One probe is one connect, one SELECT version(), one
disconnect; the session is released on every path.

One-shot checks:
  pgprobe probe                 Probe the configured target once
  pgprobe inspect               Probe plus a schema summary
  pgprobe ident                 Read the replication identity

Continuous monitoring:
  pgprobe watch                 Probe all targets on an interval
  pgprobe history               Show recorded probe results

Staff management (dvdrental):
  pgprobe staff register|login|show|update|passwd|delete`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			return logging.Setup(cfg.Log.Level, cfg.Log.File)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default pgprobe.yaml)")
	rootCmd.PersistentFlags().StringVar(&targetName, "target", "", "target name (default the primary target)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(
		newProbeCmd(),
		newInspectCmd(),
		newIdentCmd(),
		newWatchCmd(),
		newHistoryCmd(),
		newStaffCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		// Error already printed by cobra
		os.Exit(1)
	}
}
