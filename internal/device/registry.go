package device

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// entry holds one device. mu serialises every mutation of state so
// concurrent callers on the same id never observe a half-written record.
type entry struct {
	mu    sync.Mutex
	state DeviceState
}

// Registry maps DeviceID to DeviceState.
//
// The map itself is guarded by mapMu; each entry has its own lock, so
// mutations on different devices never contend. Entries are created lazily on
// first use and live for the lifetime of the Registry.
//
// All public methods are thread-safe.
type Registry struct {
	mapMu   sync.RWMutex
	entries map[DeviceID]*entry

	subMu   sync.RWMutex
	subs    map[int]chan Event
	nextSub int
	dropped atomic.Uint64

	now    func() time.Time
	logger Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[DeviceID]*entry),
		subs:    make(map[int]chan Event),
		now:     func() time.Time { return time.Now().UTC() },
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// getOrCreate returns the entry for id, creating it with default state.
func (r *Registry) getOrCreate(id DeviceID) *entry {
	r.mapMu.RLock()
	e, ok := r.entries[id]
	r.mapMu.RUnlock()
	if ok {
		return e
	}

	r.mapMu.Lock()
	defer r.mapMu.Unlock()
	if e, ok = r.entries[id]; ok {
		return e
	}
	e = &entry{state: DeviceState{ID: id, Color: ball.White}}
	r.entries[id] = e
	return e
}

func (r *Registry) lookup(id DeviceID) (*entry, bool) {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

// mutate applies fn to the entry for id under its lock and publishes the
// resulting state. fn returns false to skip the update entirely.
func (r *Registry) mutate(id DeviceID, typ EventType, fn func(s *DeviceState) bool) (DeviceState, bool) {
	e := r.getOrCreate(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !fn(&e.state) {
		return e.state, false
	}
	if e.state.Address == "" {
		e.state.Connected = false
	}
	e.state.Version++
	e.state.UpdatedAt = r.now()

	// Published under the entry lock so subscribers see per-device events in order.
	r.publish(Event{Type: typ, State: e.state})
	return e.state, true
}

// BindAddress sets or replaces the address for id.
//
// Surrounding whitespace is trimmed. Connectivity becomes true for a
// non-empty address and false for an empty one; any previous error is
// cleared. Binding the same address again is harmless.
func (r *Registry) BindAddress(id DeviceID, address string) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDeviceID, id)
	}
	address = strings.TrimSpace(address)

	var previous string
	state, _ := r.mutate(id, EventAddressBound, func(s *DeviceState) bool {
		previous = s.Address
		s.Address = address
		s.Connected = address != ""
		s.LastError = ""
		return true
	})

	if previous != address {
		r.logger.Info("ball address bound", "ball", int(id), "address", state.Address, "previous", previous)
	}
	return nil
}

// RecordColor stores c as the last requested colour for id.
//
// It is applied whether or not the command that follows succeeds.
func (r *Registry) RecordColor(id DeviceID, c ball.Color) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDeviceID, id)
	}
	r.mutate(id, EventColorRecorded, func(s *DeviceState) bool {
		s.Color = c
		return true
	})
	return nil
}

// RecordOutcome updates connectivity after a send attempt.
func (r *Registry) RecordOutcome(id DeviceID, success bool) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDeviceID, id)
	}
	r.mutate(id, EventOutcomeRecorded, func(s *DeviceState) bool {
		applyOutcome(s, success, "")
		return true
	})
	return nil
}

// RecordOutcomeFor updates connectivity for a send that targeted address.
//
// The outcome is discarded when id has been rebound to a different address
// since the send began, so a late failure cannot mark the new binding as
// disconnected. It reports whether the outcome was applied.
func (r *Registry) RecordOutcomeFor(id DeviceID, address string, success bool, reason string) (bool, error) {
	if !id.Valid() {
		return false, fmt.Errorf("%w: %d", ErrInvalidDeviceID, id)
	}
	_, applied := r.mutate(id, EventOutcomeRecorded, func(s *DeviceState) bool {
		if s.Address != address {
			return false
		}
		applyOutcome(s, success, reason)
		return true
	})
	if !applied {
		r.logger.Debug("stale outcome ignored", "ball", int(id), "address", address)
	}
	return applied, nil
}

func applyOutcome(s *DeviceState, success bool, reason string) {
	s.Connected = success
	if success {
		s.LastError = ""
	} else {
		s.LastError = reason
	}
}

// Get returns a snapshot of the state for id.
func (r *Registry) Get(id DeviceID) (DeviceState, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return DeviceState{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, true
}

// List returns snapshots of every known device ordered by id.
func (r *Registry) List() []DeviceState {
	r.mapMu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mapMu.RUnlock()

	states := make([]DeviceState, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		states = append(states, e.state)
		e.mu.Unlock()
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mapMu.RLock()
	defer r.mapMu.RUnlock()
	return len(r.entries)
}

// Seed binds every entry in bindings. Entries with an empty address are
// created unbound. The first invalid id aborts seeding.
func (r *Registry) Seed(bindings []Binding) error {
	for _, b := range bindings {
		if err := r.BindAddress(b.ID, b.Address); err != nil {
			return fmt.Errorf("seeding ball %d: %w", b.ID, err)
		}
	}
	r.logger.Info("registry seeded", "count", len(bindings))
	return nil
}
