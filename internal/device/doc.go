// Package device provides the Device Registry for jughead-core.
//
// The registry is the single source of truth for where each ball lives and
// whether the last send to it succeeded. It holds no persistent state; a
// restart begins from configuration and whatever callers bind afterwards.
//
// # Concurrency
//
// The id map is guarded by a read/write lock and each entry carries its own
// mutex. Concurrent BindAddress, RecordColor and RecordOutcome calls on the
// same id are serialised (last writer wins) while different ids proceed in
// parallel. All reads return value snapshots.
//
// # Events
//
// Subscribe yields an Event after every mutation. Slow subscribers lose
// events rather than stalling senders; DeviceState.Version lets a consumer
// detect gaps.
//
// # Usage
//
//	reg := device.NewRegistry()
//	reg.SetLogger(log)
//	_ = reg.BindAddress(1, "192.168.1.50")
//
//	events, cancel := reg.Subscribe(16)
//	defer cancel()
//	for ev := range events {
//	    fmt.Println(ev.Type, ev.State.ID, ev.State.Connected)
//	}
package device
