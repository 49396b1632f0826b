package report

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pgprobe/internal/config"
	"pgprobe/pkg/types"
)

// ClickHouseReporter appends every result to a MergeTree table for
// long-term history queries. The table is created on first use.
type ClickHouseReporter struct {
	conn  driver.Conn
	table string
}

func NewClickHouseReporter(ctx context.Context, cfg config.ClickHouseReporterConfig) (*ClickHouseReporter, error) {
	opts, err := clickhouse.ParseDSN(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id             String,
		target         String,
		status         String,
		server_version String,
		message        String,
		latency_ms     Int64,
		probed_at      DateTime64(3, 'UTC')
	) ENGINE = MergeTree ORDER BY (target, probed_at)`, cfg.Table)
	if err := conn.Exec(ctx, ddl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", cfg.Table, err)
	}

	return &ClickHouseReporter{conn: conn, table: cfg.Table}, nil
}

func (c *ClickHouseReporter) Publish(ctx context.Context, res *types.Result) error {
	query := fmt.Sprintf("INSERT INTO %s (id, target, status, server_version, message, latency_ms, probed_at)", c.table)
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch failed for %s: %w", c.table, err)
	}

	if err := batch.Append(
		res.ID,
		res.Target,
		string(res.Status),
		res.ServerVersion,
		res.Message,
		res.LatencyMs,
		res.ProbedAt,
	); err != nil {
		return err
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("batch send failed for %s: %w", c.table, err)
	}
	return nil
}

func (c *ClickHouseReporter) Close() error {
	return c.conn.Close()
}
