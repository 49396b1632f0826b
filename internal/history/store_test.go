package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pgprobe/pkg/types"
)

func testResult(id, target string, status types.Status, at time.Time) *types.Result {
	return &types.Result{
		ID:            id,
		Target:        target,
		Status:        status,
		ServerVersion: "PostgreSQL 16.1",
		LatencyMs:     12,
		ProbedAt:      at,
	}
}

func TestStoreRecordAndRecent(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), 0)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	results := []*types.Result{
		testResult("a", "primary", types.StatusOK, base),
		testResult("b", "primary", types.StatusConnectFailed, base.Add(time.Minute)),
		testResult("c", "replica", types.StatusOK, base.Add(2*time.Minute)),
	}
	results[1].Message = "dial error: connection refused"
	results[1].ServerVersion = ""

	for _, r := range results {
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Failed to record %s: %v", r.ID, err)
		}
	}

	recent, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(recent))
	}
	if recent[0].ID != "c" || recent[2].ID != "a" {
		t.Errorf("Expected newest first, got order %s, %s, %s", recent[0].ID, recent[1].ID, recent[2].ID)
	}
	if recent[1].Status != types.StatusConnectFailed {
		t.Errorf("Expected connect_failed, got %s", recent[1].Status)
	}
	if recent[1].Message != "dial error: connection refused" {
		t.Errorf("Message not round-tripped: %q", recent[1].Message)
	}
	if !recent[2].ProbedAt.Equal(base) {
		t.Errorf("Timestamp not round-tripped: %v", recent[2].ProbedAt)
	}

	byTarget, err := store.Recent(ctx, "primary", 10)
	if err != nil {
		t.Fatalf("Failed to read history by target: %v", err)
	}
	if len(byTarget) != 2 {
		t.Errorf("Expected 2 results for primary, got %d", len(byTarget))
	}

	limited, err := store.Recent(ctx, "", 1)
	if err != nil {
		t.Fatalf("Failed to read limited history: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "c" {
		t.Errorf("Expected only the newest result, got %v", limited)
	}
}

func TestStorePrunesBeyondKeep(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"), 2)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c", "d"} {
		r := testResult(id, "primary", types.StatusOK, base.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, r); err != nil {
			t.Fatalf("Failed to record %s: %v", id, err)
		}
	}

	recent, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Expected history pruned to 2 rows, got %d", len(recent))
	}
	if recent[0].ID != "d" || recent[1].ID != "c" {
		t.Errorf("Expected the newest rows to survive, got %s, %s", recent[0].ID, recent[1].ID)
	}
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	r := testResult("a", "primary", types.StatusOK, time.Now().UTC())
	if err := store.Record(ctx, r); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	store.Close()

	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	recent, err := reopened.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "a" {
		t.Errorf("Expected the recorded result to survive reopen, got %v", recent)
	}
}
