package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pgprobe/internal/config"
	"pgprobe/internal/history"
	"pgprobe/internal/report"
	"pgprobe/internal/telemetry"
	"pgprobe/pkg/types"
)

// ProbeFunc runs one probe against one target. It always returns a
// result; failures are encoded in the result status.
type ProbeFunc func(ctx context.Context, target config.TargetConfig) *types.Result

// Runner probes every configured target on a fixed interval and hands
// each result to the history store and the reporters.
type Runner struct {
	cfg     config.WatchConfig
	targets []config.TargetConfig
	probe   ProbeFunc
	rep     report.Reporter
	hist    *history.Store
	tracker *Tracker
}

// NewRunner wires a runner. rep and hist may be nil when the
// corresponding feature is not configured.
func NewRunner(cfg config.WatchConfig, targets []config.TargetConfig, probe ProbeFunc, rep report.Reporter, hist *history.Store) *Runner {
	return &Runner{
		cfg:     cfg,
		targets: targets,
		probe:   probe,
		rep:     rep,
		hist:    hist,
		tracker: NewTracker(),
	}
}

// Run blocks until ctx is canceled. The first round fires immediately,
// later rounds on the configured interval.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.round(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.round(ctx)
		}
	}
}

// round probes all targets in parallel and waits for the slowest one.
// Probe timeouts bound the round, not the tick interval.
func (r *Runner) round(ctx context.Context) {
	var wg sync.WaitGroup
	for _, target := range r.targets {
		wg.Add(1)
		go func(target config.TargetConfig) {
			defer wg.Done()
			r.probeOne(ctx, target)
		}(target)
	}
	wg.Wait()
}

func (r *Runner) probeOne(ctx context.Context, target config.TargetConfig) {
	res := r.probe(ctx, target)

	telemetry.ProbesTotal.WithLabelValues(res.Target, string(res.Status)).Inc()
	telemetry.ProbeLatency.WithLabelValues(res.Target).Observe(float64(res.LatencyMs) / 1000)

	tr := r.tracker.Observe(res.Target, res.Status)
	if res.Status.OK() {
		telemetry.ConsecutiveFailures.WithLabelValues(res.Target).Set(0)
		telemetry.LastSuccess.WithLabelValues(res.Target).SetToCurrentTime()
	} else {
		telemetry.ConsecutiveFailures.WithLabelValues(res.Target).Set(float64(tr.Consecutive))
	}

	switch {
	case tr.From == "":
		slog.Info("Probe completed", "target", res.Target, "status", res.Status, "latency_ms", res.LatencyMs)
	case tr.Changed && res.Status.OK():
		slog.Info("Target recovered", "target", res.Target, "after", tr.From)
	case tr.Changed:
		slog.Warn("Target state changed", "target", res.Target, "from", tr.From, "to", tr.To, "message", res.Message)
	default:
		slog.Debug("Probe completed", "target", res.Target, "status", res.Status, "latency_ms", res.LatencyMs)
	}

	if r.hist != nil {
		if err := r.hist.Record(ctx, res); err != nil {
			slog.Error("Failed to record result", "target", res.Target, "error", err)
		}
	}
	if r.rep != nil {
		if err := r.rep.Publish(ctx, res); err != nil {
			slog.Error("Failed to publish result", "target", res.Target, "error", err)
		}
	}
}
