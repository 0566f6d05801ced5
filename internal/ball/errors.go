package ball

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"syscall"
)

// Codec errors.
var (
	// ErrInvalidColor is returned when a colour channel is outside 0..255
	// or a colour string cannot be parsed.
	ErrInvalidColor = errors.New("ball: invalid color")

	// ErrShortFrame is returned when fewer than FrameSize bytes are decoded.
	ErrShortFrame = errors.New("ball: short frame")

	// ErrBadTag is returned when byte 0 is not FrameTag.
	ErrBadTag = errors.New("ball: bad frame tag")

	// ErrReservedNotZero is returned when any of bytes 1..7 is set.
	ErrReservedNotZero = errors.New("ball: reserved bytes not zero")

	// ErrUnknownOpcode is returned for any opcode other than OpColorChange.
	ErrUnknownOpcode = errors.New("ball: unknown opcode")
)

// Transport errors. Every error returned by UDPTransport.Send is a
// *TransportError that matches ErrTransport and exactly one of the
// kind-specific sentinels below.
var (
	ErrTransport           = errors.New("ball: transport error")
	ErrUnresolvableAddress = errors.New("ball: unresolvable address")
	ErrNetworkUnreachable  = errors.New("ball: network unreachable")
	ErrTimedOut            = errors.New("ball: timed out")
)

// ErrorKind classifies a transport failure.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindUnresolvableAddress
	KindNetworkUnreachable
	KindTimedOut
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnresolvableAddress:
		return "unresolvable_address"
	case KindNetworkUnreachable:
		return "network_unreachable"
	case KindTimedOut:
		return "timed_out"
	default:
		return "other"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindUnresolvableAddress:
		return ErrUnresolvableAddress
	case KindNetworkUnreachable:
		return ErrNetworkUnreachable
	case KindTimedOut:
		return ErrTimedOut
	default:
		return nil
	}
}

// TransportError is a classified send failure.
type TransportError struct {
	Kind    ErrorKind
	Address string
	Err     error
}

func (e *TransportError) Error() string {
	msg := "ball: send to " + e.Address + " failed (" + e.Kind.String() + ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying socket or resolver error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport and the sentinel for e.Kind.
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Message returns the underlying failure text without the address prefix.
// It is the "Other(message)" detail shown to users.
func (e *TransportError) Message() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

// KindOf returns the kind of a transport error, or KindOther when err is
// not a *TransportError.
func KindOf(err error) ErrorKind {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}

// classify maps a resolver, dial or write error to an ErrorKind.
//
// Timeouts are checked first since a resolver timeout is also a DNSError.
func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimedOut
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimedOut
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindUnresolvableAddress
	}
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return KindUnresolvableAddress
	}

	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return KindNetworkUnreachable
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "network is unreachable"):
		return KindNetworkUnreachable
	case strings.Contains(msg, "timed out"):
		return KindTimedOut
	case strings.Contains(msg, "no such host"):
		return KindUnresolvableAddress
	}
	return KindOther
}
