package discovery

import "errors"

var (
	// ErrNoDeviceID is returned when a service entry carries no usable id TXT record.
	ErrNoDeviceID = errors.New("discovery: service has no valid id record")

	// ErrNoAddress is returned when a service entry carries no IP address.
	ErrNoAddress = errors.New("discovery: service has no address")

	// ErrNoBrowser is returned when a Discoverer is built without a Browser.
	ErrNoBrowser = errors.New("discovery: browser is required")

	// ErrNoBinder is returned when a Discoverer is built without a Binder.
	ErrNoBinder = errors.New("discovery: binder is required")
)
