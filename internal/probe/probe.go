package probe

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"pgprobe/internal/config"
	"pgprobe/pkg/types"
)

const closeTimeout = 3 * time.Second

// conn is the subset of *pgx.Conn the probe uses, narrowed so the run path
// can be exercised without a server.
type conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close(ctx context.Context) error
}

type dialFunc func(ctx context.Context, dsn string) (conn, error)

type Prober struct {
	cfg  config.ProbeConfig
	dial dialFunc
}

func New(cfg config.ProbeConfig) *Prober {
	return &Prober{cfg: cfg, dial: pgxDial}
}

func pgxDial(ctx context.Context, dsn string) (conn, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run executes one connect-query-disconnect attempt against the target.
// Failures never propagate as errors; they are folded into the result with
// the client's error text unmodified. A failed attempt is terminal: there is
// no retry.
func (p *Prober) Run(ctx context.Context, target config.TargetConfig) *types.Result {
	res := &types.Result{
		ID:       uuid.NewString(),
		Target:   target.Name,
		Status:   types.StatusOK,
		ProbedAt: time.Now().UTC(),
	}

	start := time.Now()

	connectCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	c, err := p.dial(connectCtx, target.DSN())
	cancel()
	if err != nil {
		res.Status = classifyConnect(err)
		res.Message = err.Error()
		res.LatencyMs = time.Since(start).Milliseconds()
		return res
	}

	// The session is released on every path. Closing gets its own context so
	// a canceled probe context cannot leak the connection.
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = c.Close(closeCtx)
	}()

	queryCtx, cancel := context.WithTimeout(ctx, p.cfg.QueryTimeout)
	defer cancel()

	var version string
	if err := c.QueryRow(queryCtx, "SELECT version()").Scan(&version); err != nil {
		res.Status = types.StatusQueryFailed
		res.Message = err.Error()
		res.LatencyMs = time.Since(start).Milliseconds()
		return res
	}

	res.ServerVersion = version
	res.LatencyMs = time.Since(start).Milliseconds()
	return res
}
