package report

import (
	"context"
	"fmt"
	"sync"

	"pgprobe/pkg/types"
)

// BroadcastReporter publishes to multiple reporters in parallel.
// It returns an error if ANY reporter fails.
type BroadcastReporter struct {
	reporters []Reporter
}

func NewBroadcastReporter(reporters []Reporter) *BroadcastReporter {
	return &BroadcastReporter{reporters: reporters}
}

func (b *BroadcastReporter) Publish(ctx context.Context, res *types.Result) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(b.reporters))

	for _, r := range b.reporters {
		wg.Add(1)
		go func(r Reporter) {
			defer wg.Done()
			if err := r.Publish(ctx, res); err != nil {
				errCh <- err
			}
		}(r)
	}

	wg.Wait()
	close(errCh)

	// Collect errors
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("broadcast failed: %v", errs)
	}

	return nil
}

func (b *BroadcastReporter) Close() error {
	var errs []error
	for _, r := range b.reporters {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close failed: %v", errs)
	}
	return nil
}
