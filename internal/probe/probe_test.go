package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"pgprobe/internal/config"
	"pgprobe/pkg/types"
)

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r *fakeRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

type fakeConn struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	closed       bool
}

func (c *fakeConn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.queryRowFunc(ctx, sql, args...)
}

func (c *fakeConn) Close(ctx context.Context) error {
	c.closed = true
	return nil
}

func versionConn(version string) *fakeConn {
	return &fakeConn{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &fakeRow{scanFunc: func(dest ...any) error {
				*(dest[0].(*string)) = version
				return nil
			}}
		},
	}
}

func testProber(dial dialFunc) *Prober {
	return &Prober{
		cfg:  config.ProbeConfig{ConnectTimeout: time.Second, QueryTimeout: time.Second},
		dial: dial,
	}
}

func testTarget() config.TargetConfig {
	return config.TargetConfig{
		Name:     "primary",
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "dvdrental",
		Encoding: "utf8",
		SSLMode:  "disable",
	}
}

func TestProbeSuccess(t *testing.T) {
	fc := versionConn("PostgreSQL 16.1 on x86_64-pc-linux-gnu")
	p := testProber(func(ctx context.Context, dsn string) (conn, error) {
		return fc, nil
	})

	res := p.Run(context.Background(), testTarget())

	if !res.OK() {
		t.Fatalf("Expected ok, got %s (%s)", res.Status, res.Message)
	}
	if res.ServerVersion != "PostgreSQL 16.1 on x86_64-pc-linux-gnu" {
		t.Errorf("Unexpected version: %s", res.ServerVersion)
	}
	if res.Message != "" {
		t.Errorf("Expected empty message on success, got %s", res.Message)
	}
	if res.Target != "primary" {
		t.Errorf("Expected target 'primary', got %s", res.Target)
	}
	if res.ID == "" {
		t.Error("Expected a run ID")
	}
	if res.ProbedAt.IsZero() {
		t.Error("Expected a probe timestamp")
	}
	if !fc.closed {
		t.Error("Connection was not closed after a successful probe")
	}
}

func TestProbeRunsFixedQuery(t *testing.T) {
	var gotSQL string
	fc := &fakeConn{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			gotSQL = sql
			return &fakeRow{scanFunc: func(dest ...any) error {
				*(dest[0].(*string)) = "PostgreSQL 16.1"
				return nil
			}}
		},
	}
	p := testProber(func(ctx context.Context, dsn string) (conn, error) {
		return fc, nil
	})

	p.Run(context.Background(), testTarget())

	if gotSQL != "SELECT version()" {
		t.Errorf("Expected the fixed diagnostic query, got %q", gotSQL)
	}
}

func TestProbeQueryFailure(t *testing.T) {
	fc := &fakeConn{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &fakeRow{scanFunc: func(dest ...any) error {
				return errors.New("ERROR: out of memory (SQLSTATE 53200)")
			}}
		},
	}
	p := testProber(func(ctx context.Context, dsn string) (conn, error) {
		return fc, nil
	})

	res := p.Run(context.Background(), testTarget())

	if res.Status != types.StatusQueryFailed {
		t.Errorf("Expected query_failed, got %s", res.Status)
	}
	if res.Message != "ERROR: out of memory (SQLSTATE 53200)" {
		t.Errorf("Expected the client error text as-is, got %q", res.Message)
	}
	if !fc.closed {
		t.Error("Connection was not closed after a failed query")
	}
}

func TestProbeConnectFailure(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	p := testProber(func(ctx context.Context, dsn string) (conn, error) {
		return nil, dialErr
	})

	res := p.Run(context.Background(), testTarget())

	if res.Status != types.StatusConnectFailed {
		t.Errorf("Expected connect_failed, got %s", res.Status)
	}
	if res.Message != dialErr.Error() {
		t.Errorf("Expected the client error text as-is, got %q", res.Message)
	}
	if res.ServerVersion != "" {
		t.Errorf("Expected no version on failure, got %s", res.ServerVersion)
	}
}

func TestProbeAuthFailure(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "FATAL", Code: "28P01", Message: `password authentication failed for user "postgres"`}
	p := testProber(func(ctx context.Context, dsn string) (conn, error) {
		return nil, fmt.Errorf("failed to connect to `host=localhost user=postgres`: %w", pgErr)
	})

	res := p.Run(context.Background(), testTarget())

	if res.Status != types.StatusAuthFailed {
		t.Errorf("Expected auth_failed, got %s", res.Status)
	}
}

func TestProbeDatabaseMissing(t *testing.T) {
	pgErr := &pgconn.PgError{Severity: "FATAL", Code: "3D000", Message: `database "dvdrental" does not exist`}
	p := testProber(func(ctx context.Context, dsn string) (conn, error) {
		return nil, pgErr
	})

	res := p.Run(context.Background(), testTarget())

	if res.Status != types.StatusDatabaseMissing {
		t.Errorf("Expected database_missing, got %s", res.Status)
	}
}

func TestProbeIdempotence(t *testing.T) {
	var dials int
	var conns []*fakeConn
	p := testProber(func(ctx context.Context, dsn string) (conn, error) {
		dials++
		fc := versionConn("PostgreSQL 16.1")
		conns = append(conns, fc)
		return fc, nil
	})

	first := p.Run(context.Background(), testTarget())
	second := p.Run(context.Background(), testTarget())

	if !first.OK() || !second.OK() {
		t.Fatalf("Expected both probes to succeed, got %s / %s", first.Status, second.Status)
	}
	if dials != 2 {
		t.Errorf("Expected 2 independent connections, got %d", dials)
	}
	for i, fc := range conns {
		if !fc.closed {
			t.Errorf("Connection %d was not closed", i)
		}
	}
	if first.ID == second.ID {
		t.Error("Expected distinct run IDs")
	}
}
