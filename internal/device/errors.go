package device

import "errors"

// Domain errors for the device package.
//
//	if errors.Is(err, device.ErrInvalidDeviceID) {
//	    // reject the request
//	}
var (
	// ErrInvalidDeviceID is returned when a device id is not positive.
	ErrInvalidDeviceID = errors.New("device: invalid device id")

	// ErrDeviceNotFound is returned by lookups for an id never seen.
	ErrDeviceNotFound = errors.New("device: not found")
)
