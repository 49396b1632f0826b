package probe

import (
	"context"
	"fmt"

	"github.com/jackc/pglogrepl"
	"github.com/jackc/pgx/v5/pgconn"

	"pgprobe/internal/config"
	"pgprobe/pkg/types"
)

// Identify opens a replication-protocol connection and runs IDENTIFY_SYSTEM,
// verifying that the endpoint accepts streaming clients.
func (p *Prober) Identify(ctx context.Context, target config.TargetConfig) (*types.Ident, error) {
	cfg, err := pgconn.ParseConfig(target.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}
	cfg.RuntimeParams["replication"] = "database"

	connectCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	c, err := pgconn.ConnectConfig(connectCtx, cfg)
	cancel()
	if err != nil {
		return nil, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = c.Close(closeCtx)
	}()

	sysident, err := pglogrepl.IdentifySystem(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("IdentifySystem failed: %w", err)
	}

	return &types.Ident{
		SystemID: sysident.SystemID,
		Timeline: sysident.Timeline,
		XLogPos:  sysident.XLogPos.String(),
		Database: sysident.DBName,
	}, nil
}
