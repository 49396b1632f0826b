package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pgprobe/internal/config"
	"pgprobe/pkg/types"
)

// RetryReporter retries delivery of a result. Probes themselves are
// never retried, only publishing the outcome is.
type RetryReporter struct {
	next Reporter
	cfg  config.RetryConfig
	name string
}

func NewRetryReporter(name string, next Reporter, cfg config.RetryConfig) *RetryReporter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}
	return &RetryReporter{
		next: next,
		cfg:  cfg,
		name: name,
	}
}

func (r *RetryReporter) Publish(ctx context.Context, res *types.Result) error {
	var err error
	for i := 0; i < r.cfg.MaxAttempts; i++ {
		if err = r.next.Publish(ctx, res); err == nil {
			return nil
		}

		slog.Warn("Reporter publish failed, retrying",
			"reporter", r.name,
			"attempt", i+1,
			"max_attempts", r.cfg.MaxAttempts,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.cfg.Backoff * time.Duration(1<<i)): // Exponential backoff
		}
	}
	return fmt.Errorf("reporter %s failed after %d attempts: %w", r.name, r.cfg.MaxAttempts, err)
}

func (r *RetryReporter) Close() error {
	return r.next.Close()
}
