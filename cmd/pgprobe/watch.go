package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pgprobe/internal/history"
	"pgprobe/internal/probe"
	"pgprobe/internal/report"
	"pgprobe/internal/telemetry"
	"pgprobe/internal/watch"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Probe all targets on an interval",
		Long: `Probe every configured target on the watch interval, keep local
history, publish results to the configured reporters, and serve
Prometheus metrics. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1. Telemetry
			telemetry.Init(cfg.Telemetry.Address)
			slog.Info("Starting watch", "targets", len(cfg.AllTargets()), "interval", cfg.Watch.Interval)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			// 2. Reporters
			var reporters []report.Reporter

			for _, rc := range cfg.Reporters.Redis {
				r, err := report.NewRedisReporter(rc)
				if err != nil {
					slog.Error("Failed to init redis reporter", "name", rc.Name, "error", err)
					os.Exit(1)
				}
				// Wrap with Retry
				reporters = append(reporters, report.NewRetryReporter(rc.Name, r, rc.Retry))
				slog.Info("Initialized redis reporter", "name", rc.Name)
			}

			for _, rc := range cfg.Reporters.ClickHouse {
				r, err := report.NewClickHouseReporter(ctx, rc)
				if err != nil {
					slog.Error("Failed to init clickhouse reporter", "name", rc.Name, "error", err)
					os.Exit(1)
				}
				// Wrap with Retry
				reporters = append(reporters, report.NewRetryReporter(rc.Name, r, rc.Retry))
				slog.Info("Initialized clickhouse reporter", "name", rc.Name)
			}

			var rep report.Reporter
			if len(reporters) > 0 {
				b := report.NewBroadcastReporter(reporters)
				defer b.Close()
				rep = b
			}

			// 3. History
			hist, err := history.Open(cfg.History.Path, cfg.History.Keep)
			if err != nil {
				slog.Error("Failed to open history store", "error", err)
				os.Exit(1)
			}
			defer hist.Close()

			// 4. Runner
			p := probe.New(cfg.Probe)
			runner := watch.NewRunner(cfg.Watch, cfg.AllTargets(), p.Run, rep, hist)

			go func() {
				if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
					slog.Error("Runner failed", "error", err)
					cancel()
				}
			}()

			// 5. Wait for Signal
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			slog.Info("Shutting down...")
			cancel()
			// Give in-flight probes time to finish
			time.Sleep(2 * time.Second)
			return nil
		},
	}
}
