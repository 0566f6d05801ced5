package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/dispatch"
)

// Commands accepted on jughead/command/ball/{id}.
const (
	CommandSetColor    = "set_color"
	CommandBindAddress = "bind_address"
)

// CommandMessage is a command for one ball.
// Topic: jughead/command/ball/{id}
type CommandMessage struct {
	// ID correlates the command with its ack. Filled with a UUID when empty.
	ID string `json:"id"`

	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the ball id. Taken from the topic when zero.
	DeviceID int `json:"device_id"`

	Command string `json:"command"`

	// Parameters:
	//   set_color:    {"color": "teal"} or {"color": "#ff8800"} or {"r": 255, "g": 136, "b": 0}
	//   bind_address: {"address": "192.168.1.40"}
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source names the originator, e.g. "automation" or "panel".
	Source string `json:"source,omitempty"`
}

// UnmarshalJSON accepts a missing or empty timestamp.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type alias CommandMessage
	aux := &struct {
		*alias
		Timestamp string `json:"timestamp"`
	}{alias: (*alias)(m)}

	if err := json.Unmarshal(data, aux); err != nil {
		return fmt.Errorf("unmarshal command message: %w", err)
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// AckStatus is the acknowledgement status of a command.
type AckStatus string

const (
	// AckAccepted means the frame was written to the ball's socket, or the
	// binding was applied.
	AckAccepted AckStatus = "accepted"

	// AckFailed means the command was rejected or the send failed.
	AckFailed AckStatus = "failed"

	// AckTimeout means the send did not complete within the timeout.
	AckTimeout AckStatus = "timeout"
)

// Error codes carried in AckError.
const (
	ErrCodeNoAddress           = "NO_ADDRESS"
	ErrCodeInvalidParameters   = "INVALID_PARAMETERS"
	ErrCodeUnresolvableAddress = "UNRESOLVABLE_ADDRESS"
	ErrCodeNetworkUnreachable  = "NETWORK_UNREACHABLE"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeTransportError      = "TRANSPORT_ERROR"
	ErrCodeInvalidCommand      = "INVALID_COMMAND"
)

// AckMessage acknowledges a command.
// Topic: jughead/ack/ball/{id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  int       `json:"device_id"`
	Status    AckStatus `json:"status"`
	Address   string    `json:"address,omitempty"`

	// Message is the human-readable outcome, also set on success.
	Message string `json:"message,omitempty"`

	Error *AckError `json:"error,omitempty"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateMessage is the retained state of one ball.
// Topic: jughead/state/ball/{id}
type StateMessage struct {
	DeviceID  int        `json:"device_id"`
	Timestamp time.Time  `json:"timestamp"`
	Address   string     `json:"address"`
	Color     ball.Color `json:"color"`
	Hex       string     `json:"hex"`
	Connected bool       `json:"connected"`
	LastError string     `json:"last_error,omitempty"`
	Version   uint64     `json:"version"`
}

// NewAckMessage creates a successful acknowledgement.
func NewAckMessage(cmd CommandMessage, address, message string) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    AckAccepted,
		Address:   address,
		Message:   message,
	}
}

// NewAckError creates a failed acknowledgement. A TIMEOUT code yields the
// timeout status.
func NewAckError(cmd CommandMessage, address, code, message string) AckMessage {
	status := AckFailed
	if code == ErrCodeTimeout {
		status = AckTimeout
	}
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Address:   address,
		Message:   message,
		Error:     &AckError{Code: code, Message: message},
	}
}

// NewResultAck maps a dispatch result onto an acknowledgement.
func NewResultAck(cmd CommandMessage, res dispatch.Result) AckMessage {
	if res.OK() {
		return NewAckMessage(cmd, res.Address, res.Message)
	}
	return NewAckError(cmd, res.Address, ErrorCode(res.Err), res.Message)
}

// ErrorCode maps a dispatch error to an ack error code.
func ErrorCode(err error) string {
	switch dispatch.OutcomeOf(err) {
	case dispatch.OutcomeNoAddress:
		return ErrCodeNoAddress
	case dispatch.OutcomeInvalidArgument:
		return ErrCodeInvalidParameters
	case dispatch.OutcomeUnresolvableAddress:
		return ErrCodeUnresolvableAddress
	case dispatch.OutcomeNetworkUnreachable:
		return ErrCodeNetworkUnreachable
	case dispatch.OutcomeTimedOut:
		return ErrCodeTimeout
	default:
		return ErrCodeTransportError
	}
}

// NewStateMessage creates a state message from a registry snapshot.
func NewStateMessage(s device.DeviceState) StateMessage {
	return StateMessage{
		DeviceID:  int(s.ID),
		Timestamp: s.UpdatedAt.UTC(),
		Address:   s.Address,
		Color:     s.Color,
		Hex:       s.Color.Hex(),
		Connected: s.Connected,
		LastError: s.LastError,
		Version:   s.Version,
	}
}

var errMissingColor = errors.New("parameters must carry color or r, g and b")

// colorFromParameters reads a set_color colour. "color" takes precedence
// over separate channels. Range checks are left to the dispatcher.
func colorFromParameters(params map[string]any) (ball.Color, error) {
	if v, ok := params["color"]; ok {
		s, ok := v.(string)
		if !ok {
			return ball.Color{}, fmt.Errorf("color must be a string, got %T", v)
		}
		return ball.ParseColor(s)
	}

	var ch [3]int
	for i, key := range []string{"r", "g", "b"} {
		v, ok := params[key]
		if !ok {
			return ball.Color{}, errMissingColor
		}
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return ball.Color{}, fmt.Errorf("%s must be an integer", key)
		}
		ch[i] = int(f)
	}
	return ball.Color{R: ch[0], G: ch[1], B: ch[2]}, nil
}
