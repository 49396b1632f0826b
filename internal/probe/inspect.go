package probe

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pgprobe/internal/config"
	"pgprobe/pkg/types"
)

// Inspect gathers a diagnostic snapshot over a single connection: session
// identity, server version, and a glimpse of the public schema. The whole
// read runs inside one read-only transaction.
func (p *Prober) Inspect(ctx context.Context, target config.TargetConfig) (*types.Inspection, error) {
	connectCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	c, err := pgx.Connect(connectCtx, target.DSN())
	cancel()
	if err != nil {
		return nil, err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		_ = c.Close(closeCtx)
	}()

	tx, err := c.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	insp := &types.Inspection{}

	err = tx.QueryRow(ctx, "SELECT current_database(), current_user, version()").
		Scan(&insp.Database, &insp.User, &insp.ServerVersion)
	if err != nil {
		return nil, fmt.Errorf("session query failed: %w", err)
	}

	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public'").
		Scan(&insp.TableCount)
	if err != nil {
		return nil, fmt.Errorf("table count failed: %w", err)
	}

	rows, err := tx.Query(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name LIMIT 5")
	if err != nil {
		return nil, fmt.Errorf("table listing failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("table listing scan failed: %w", err)
		}
		insp.Tables = append(insp.Tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table listing failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return insp, nil
}
