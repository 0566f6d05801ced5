package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/infrastructure/config"
	"github.com/nerrad567/jughead-core/internal/infrastructure/database"
	_ "github.com/nerrad567/jughead-core/migrations"
)

func setupHistory(t *testing.T) *SQLiteHistory {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteHistory(db.DB)
}

func TestSQLiteHistory_RecordAndList(t *testing.T) {
	h := setupHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []string{OutcomeSuccess, OutcomeTimedOut, OutcomeSuccess} {
		err := h.Record(ctx, HistoryEntry{
			DeviceID:  1,
			Address:   "10.0.0.5",
			Color:     ball.Color{R: i},
			Outcome:   outcome,
			Duration:  time.Duration(i) * time.Millisecond,
			CreatedAt: base.Add(time.Duration(i) * 100 * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	_ = h.Record(ctx, HistoryEntry{DeviceID: 2, Outcome: OutcomeNoAddress, CreatedAt: base})

	entries, err := h.List(ctx, 1, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[0].Color.R != 2 || entries[2].Color.R != 0 {
		t.Errorf("entries not newest first: %+v", entries)
	}
	if entries[1].Outcome != OutcomeTimedOut {
		t.Errorf("entries[1].Outcome = %q", entries[1].Outcome)
	}
	if entries[1].Duration != time.Millisecond {
		t.Errorf("entries[1].Duration = %v, want 1ms", entries[1].Duration)
	}
	if !entries[2].CreatedAt.Equal(base) {
		t.Errorf("entries[2].CreatedAt = %v, want %v", entries[2].CreatedAt, base)
	}

	limited, err := h.List(ctx, 1, 2)
	if err != nil || len(limited) != 2 {
		t.Errorf("List(limit 2) = %d entries, err %v", len(limited), err)
	}
}

func TestSQLiteHistory_InvalidID(t *testing.T) {
	h := setupHistory(t)
	if err := h.Record(context.Background(), HistoryEntry{DeviceID: 0}); !errors.Is(err, device.ErrInvalidDeviceID) {
		t.Errorf("Record() error = %v, want ErrInvalidDeviceID", err)
	}
	if _, err := h.List(context.Background(), -1, 10); !errors.Is(err, device.ErrInvalidDeviceID) {
		t.Errorf("List() error = %v, want ErrInvalidDeviceID", err)
	}
}

func TestSQLiteHistory_Prune(t *testing.T) {
	h := setupHistory(t)
	ctx := context.Background()

	_ = h.Record(ctx, HistoryEntry{DeviceID: 1, Outcome: OutcomeSuccess, CreatedAt: time.Now().Add(-48 * time.Hour)})
	_ = h.Record(ctx, HistoryEntry{DeviceID: 1, Outcome: OutcomeSuccess, CreatedAt: time.Now()})

	n, err := h.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Prune() removed %d, want 1", n)
	}
	if _, err := h.Prune(ctx, 0); err == nil {
		t.Error("Prune(0) expected error")
	}
}

func TestDispatcherWritesSQLiteHistory(t *testing.T) {
	h := setupHistory(t)
	reg := device.NewRegistry()
	d, err := New(Options{Registry: reg, Transport: &fakeTransport{}, History: h})
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close() //nolint:errcheck // Test cleanup

	_ = reg.BindAddress(4, "10.0.0.4")
	<-d.SendColorCommand(context.Background(), 4, ball.Color{G: 200})

	entries, err := h.List(context.Background(), 4, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Color.G != 200 || entries[0].Outcome != OutcomeSuccess {
		t.Errorf("entries = %+v", entries)
	}
}
