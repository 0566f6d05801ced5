// Package bridge exposes the dispatcher on the MQTT bus.
//
// It subscribes to jughead/command/ball/+ and executes set_color and
// bind_address commands, acknowledging each on jughead/ack/ball/{id} with
// the classified outcome and its human-readable message. Every registry
// change is republished as retained JSON on jughead/state/ball/{id}.
package bridge
