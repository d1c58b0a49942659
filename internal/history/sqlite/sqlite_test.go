package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/stationprobe/internal/history"
	"github.com/loykin/stationprobe/internal/station"
)

func TestSQLiteSink_Integration(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	sink, err := New("sqlite://" + dbPath)
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			t.Errorf("Failed to close sink: %v", err)
		}
	}()

	ctx := context.Background()
	res := station.Result{
		AssociationSucceeded: true,
		AssociationTime:      1.2,
		LeaseSucceeded:       true,
		LeaseTime:            0.4,
		StartedAt:            time.Now().Add(-2 * time.Second),
		Duration:             1.9,
	}
	if err := sink.Send(ctx, history.StationResult("lab", res)); err != nil {
		t.Fatalf("Failed to send station event: %v", err)
	}
	if err := sink.Send(ctx, history.CycleComplete(2*time.Second)); err != nil {
		t.Fatalf("Failed to send cycle event: %v", err)
	}

	var (
		assoc, probe bool
		lease        float64
	)
	row := sink.db.QueryRowContext(ctx,
		`SELECT association_succeeded, lease_time, probe_succeeded FROM probe_history WHERE station = ?`, "lab")
	if err := row.Scan(&assoc, &lease, &probe); err != nil {
		t.Fatalf("Failed to query station row: %v", err)
	}
	if !assoc || probe || lease != 0.4 {
		t.Errorf("unexpected row: association=%t lease=%f probe=%t", assoc, lease, probe)
	}

	var cycles int
	if err := sink.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM probe_history WHERE type = ?`, string(history.EventCycleComplete)).Scan(&cycles); err != nil {
		t.Fatalf("Failed to count cycle rows: %v", err)
	}
	if cycles != 1 {
		t.Errorf("Expected 1 cycle row, got %d", cycles)
	}
}

func TestSQLiteSink_InMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := sink.Send(ctx, history.StationResult("mem", station.Result{})); err != nil {
			t.Fatalf("Failed to send event: %v", err)
		}
	}

	var count int
	if err := sink.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM probe_history`).Scan(&count); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 rows, got %d", count)
	}
}

func TestSQLiteSink_ContextCancellation(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create sink: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sink.Send(ctx, history.CycleComplete(time.Second)); err == nil {
		t.Error("Expected error with cancelled context")
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Error("Expected error for empty DSN")
	}
}
