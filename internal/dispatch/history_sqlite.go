package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nerrad567/jughead-core/internal/device"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// historyTimeFormat is fixed-width so created_at sorts lexically.
	historyTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteHistory implements HistoryStore on the command_history table.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory creates a history store over an open, migrated database.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// Record inserts one attempt.
func (h *SQLiteHistory) Record(ctx context.Context, e HistoryEntry) error {
	if !e.DeviceID.Valid() {
		return device.ErrInvalidDeviceID
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO command_history
		 (device_id, address, red, green, blue, outcome, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int(e.DeviceID),
		e.Address,
		e.Color.R,
		e.Color.G,
		e.Color.B,
		e.Outcome,
		e.Error,
		e.Duration.Milliseconds(),
		e.CreatedAt.UTC().Format(historyTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting command history: %w", err)
	}
	return nil
}

// List returns recent attempts for a ball ordered newest first.
func (h *SQLiteHistory) List(ctx context.Context, id device.DeviceID, limit int) ([]HistoryEntry, error) {
	if !id.Valid() {
		return nil, device.ErrInvalidDeviceID
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, device_id, address, red, green, blue, outcome, error, duration_ms, created_at
		 FROM command_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		int(id),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying command history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			e          HistoryEntry
			deviceID   int
			durationMS int64
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &deviceID, &e.Address, &e.Color.R, &e.Color.G, &e.Color.B,
			&e.Outcome, &e.Error, &durationMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning command history: %w", err)
		}
		e.DeviceID = device.DeviceID(deviceID)
		e.Duration = time.Duration(durationMS) * time.Millisecond

		ts, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = ts

		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating command history: %w", err)
	}

	return entries, nil
}

// Prune deletes entries older than olderThan and returns how many went.
func (h *SQLiteHistory) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(historyTimeFormat)
	result, err := h.db.ExecContext(ctx, "DELETE FROM command_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting command history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return ts.UTC(), nil
}
