package dispatch

import (
	"context"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
)

// HistoryEntry is one recorded colour command attempt.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	DeviceID device.DeviceID `json:"device_id"`
	Address  string          `json:"address"`
	Color    ball.Color      `json:"color"`

	// Outcome is one of the Outcome* constants.
	Outcome string `json:"outcome"`

	// Error is the user-facing failure sentence, empty on success.
	Error string `json:"error,omitempty"`

	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// HistoryStore persists and queries command history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryStore interface {
	HistoryRecorder

	// List returns the most recent entries for a ball, newest first.
	// limit defaults to 50 and is clamped to 200.
	List(ctx context.Context, id device.DeviceID, limit int) ([]HistoryEntry, error)
}
