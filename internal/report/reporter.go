package report

import (
	"context"

	"pgprobe/pkg/types"
)

type Reporter interface {
	Publish(ctx context.Context, res *types.Result) error
	Close() error
}
