package device

import (
	"strconv"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
)

// DeviceID identifies one ball. Valid ids are positive; the caller assigns
// them and the registry never generates, reuses or merges them.
type DeviceID int

// Valid reports whether id is a usable device id.
func (id DeviceID) Valid() bool {
	return id > 0
}

func (id DeviceID) String() string {
	return strconv.Itoa(int(id))
}

// ParseDeviceID parses a decimal device id and checks it is valid.
func ParseDeviceID(s string) (DeviceID, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidDeviceID
	}
	id := DeviceID(n)
	if !id.Valid() {
		return 0, ErrInvalidDeviceID
	}
	return id, nil
}

// DeviceState is a snapshot of everything the registry knows about a ball.
//
// Connected is never true while Address is empty.
type DeviceState struct {
	ID DeviceID `json:"id"`

	// Address is the hostname or IP, optionally with :port. Empty means unbound.
	Address string `json:"address"`

	// Color is the last requested colour, recorded before the send outcome
	// is known. It is White until the first command.
	Color ball.Color `json:"color"`

	// Connected is true after binding a non-empty address and after each
	// successful send, false after any failure.
	Connected bool `json:"connected"`

	// LastError holds the most recent failure reason, cleared on success or rebind.
	LastError string `json:"last_error,omitempty"`

	// Version increments on every mutation of this entry.
	Version uint64 `json:"version"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Bound reports whether an address is set.
func (s DeviceState) Bound() bool {
	return s.Address != ""
}

// Binding is a static id to address pair used to seed the registry.
type Binding struct {
	ID      DeviceID
	Address string
}

// EventType names the mutation that produced an Event.
type EventType string

// Event types.
const (
	EventAddressBound    EventType = "address_bound"
	EventColorRecorded   EventType = "color_recorded"
	EventOutcomeRecorded EventType = "outcome_recorded"
)

// Event is published to subscribers after every registry mutation and
// carries the entry state as it was immediately after that mutation.
type Event struct {
	Type  EventType   `json:"type"`
	State DeviceState `json:"state"`
}
