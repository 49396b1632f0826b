package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pgprobe/pkg/types"
)

//go:embed schema.sql
var schema string

// Store keeps probe results in a local sqlite database.
type Store struct {
	db   *sql.DB
	keep int
}

// Open creates or opens the store at path. With keep > 0, Record prunes the
// store down to the newest keep rows.
func Open(path string, keep int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}

	return &Store{db: db, keep: keep}, nil
}

func (s *Store) Record(ctx context.Context, res *types.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO probe_results (id, target, status, server_version, message, latency_ms, probed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.Target, string(res.Status), res.ServerVersion, res.Message, res.LatencyMs,
		res.ProbedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record result: %w", err)
	}

	if s.keep > 0 {
		if err := s.prune(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) prune(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM probe_results
		WHERE id NOT IN (
			SELECT id FROM probe_results ORDER BY probed_at DESC LIMIT ?
		)`, s.keep)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	return nil
}

// Recent returns the newest results, most recent first. The empty target
// selects all targets.
func (s *Store) Recent(ctx context.Context, target string, limit int) ([]*types.Result, error) {
	query := `
		SELECT id, target, status, server_version, message, latency_ms, probed_at
		FROM probe_results`
	args := []any{}
	if target != "" {
		query += " WHERE target = ?"
		args = append(args, target)
	}
	query += " ORDER BY probed_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var out []*types.Result
	for rows.Next() {
		var r types.Result
		var status, probedAt string
		if err := rows.Scan(&r.ID, &r.Target, &status, &r.ServerVersion, &r.Message, &r.LatencyMs, &probedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Status = types.Status(status)
		ts, err := time.Parse(time.RFC3339Nano, probedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", probedAt, err)
		}
		r.ProbedAt = ts
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
