package types

import (
	"time"
)

type Status string

const (
	StatusOK              Status = "ok"
	StatusConnectFailed   Status = "connect_failed"
	StatusAuthFailed      Status = "auth_failed"
	StatusDatabaseMissing Status = "database_missing"
	StatusQueryFailed     Status = "query_failed"
)

func (s Status) OK() bool {
	return s == StatusOK
}

// Result is the outcome of a single connect-query-disconnect attempt.
// Message carries the client library's error text unmodified.
type Result struct {
	ID            string    `json:"id"`
	Target        string    `json:"target"`
	Status        Status    `json:"status"`
	ServerVersion string    `json:"server_version,omitempty"`
	Message       string    `json:"message,omitempty"`
	LatencyMs     int64     `json:"latency_ms"`
	ProbedAt      time.Time `json:"probed_at"`
}

func (r *Result) OK() bool {
	return r.Status.OK()
}

// Inspection is the extended diagnostic snapshot taken over one connection.
type Inspection struct {
	Database      string   `json:"database"`
	User          string   `json:"user"`
	ServerVersion string   `json:"server_version"`
	TableCount    int      `json:"table_count"`
	Tables        []string `json:"tables"`
}

// Ident reports the server's replication identity as returned by
// IDENTIFY_SYSTEM over a replication connection.
type Ident struct {
	SystemID string `json:"system_id"`
	Timeline int32  `json:"timeline"`
	XLogPos  string `json:"xlog_pos"`
	Database string `json:"database"`
}
