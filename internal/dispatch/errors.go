package dispatch

import (
	"errors"
	"fmt"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
)

// Dispatcher errors. Transport failures are returned as *ball.TransportError
// and can be matched with ball.ErrUnresolvableAddress, ball.ErrNetworkUnreachable
// and ball.ErrTimedOut.
var (
	// ErrNoAddressBound is returned when the ball has no address. No network
	// I/O is attempted.
	ErrNoAddressBound = errors.New("dispatch: no address bound")

	// ErrInvalidArgument is returned for an out-of-range colour or an invalid
	// ball id. No network I/O is attempted.
	ErrInvalidArgument = errors.New("dispatch: invalid argument")

	// ErrClosed is returned for commands issued after Close.
	ErrClosed = errors.New("dispatch: closed")

	// ErrCancelled is returned when the caller's context ended before the
	// send started. It wraps the context error.
	ErrCancelled = errors.New("dispatch: cancelled")
)

// Outcome values recorded in history and metrics.
const (
	OutcomeSuccess             = "success"
	OutcomeNoAddress           = "no_address"
	OutcomeInvalidArgument     = "invalid_argument"
	OutcomeUnresolvableAddress = "unresolvable_address"
	OutcomeNetworkUnreachable  = "network_unreachable"
	OutcomeTimedOut            = "timed_out"
	OutcomeCancelled           = "cancelled"
	OutcomeClosed              = "closed"
	OutcomeOther               = "other"
)

// OutcomeOf maps a Send error to its outcome label.
func OutcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrNoAddressBound):
		return OutcomeNoAddress
	case errors.Is(err, ErrInvalidArgument):
		return OutcomeInvalidArgument
	case errors.Is(err, ErrClosed):
		return OutcomeClosed
	case errors.Is(err, ErrCancelled):
		return OutcomeCancelled
	case errors.Is(err, ball.ErrUnresolvableAddress):
		return OutcomeUnresolvableAddress
	case errors.Is(err, ball.ErrNetworkUnreachable):
		return OutcomeNetworkUnreachable
	case errors.Is(err, ball.ErrTimedOut):
		return OutcomeTimedOut
	default:
		return OutcomeOther
	}
}

// Message returns a short sentence describing err, suitable for showing to a
// user as-is. A nil err yields the success sentence.
func Message(err error, id device.DeviceID, address string) string {
	var te *ball.TransportError
	switch {
	case err == nil:
		return fmt.Sprintf("Color sent to %s", address)
	case errors.Is(err, ErrNoAddressBound):
		return fmt.Sprintf("No address set for ball %d. Enter an IP address first.", id)
	case errors.Is(err, device.ErrInvalidDeviceID):
		return fmt.Sprintf("Invalid ball id %d: ids must be positive.", id)
	case errors.Is(err, ErrInvalidArgument):
		return fmt.Sprintf("Invalid color for ball %d: channel values must be between 0 and 255.", id)
	case errors.Is(err, ErrClosed):
		return "Dispatcher is shutting down. Command not sent."
	case errors.Is(err, ErrCancelled):
		return fmt.Sprintf("Command for ball %d was cancelled before sending.", id)
	case errors.Is(err, ball.ErrUnresolvableAddress):
		return fmt.Sprintf("Failed to connect to ball at %s: address could not be resolved.", address)
	case errors.Is(err, ball.ErrNetworkUnreachable):
		return "Network is unreachable. Check your connection."
	case errors.Is(err, ball.ErrTimedOut):
		return fmt.Sprintf("Connection timed out. Ball at %s not responding.", address)
	case errors.As(err, &te):
		return fmt.Sprintf("Error sending color to ball at %s: %s", address, te.Message())
	default:
		return fmt.Sprintf("Error sending color to ball at %s: %s", address, err.Error())
	}
}
