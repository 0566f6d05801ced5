package ball

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a send when the caller passes zero.
const DefaultTimeout = 1000 * time.Millisecond

// Sender transmits one encoded frame to a ball.
//
// Implementations must bound the whole attempt by timeout and must not
// serialise unrelated sends.
type Sender interface {
	Send(ctx context.Context, address string, frame Frame, timeout time.Duration) error
}

// Resolver looks up the IP addresses for a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Dialer opens a connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Logger defines the logging interface used by the transport.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// TransportOptions configures a UDPTransport. Zero values select defaults.
type TransportOptions struct {
	// Port is used when an address carries no explicit port. Default DefaultPort.
	Port int

	// Resolver defaults to net.DefaultResolver.
	Resolver Resolver

	// Dialer defaults to a zero net.Dialer.
	Dialer Dialer
}

// TransportStats is a snapshot of transport counters.
type TransportStats struct {
	FramesSent          uint64 `json:"frames_sent"`
	Failures            uint64 `json:"failures"`
	UnresolvableAddress uint64 `json:"unresolvable_address"`
	NetworkUnreachable  uint64 `json:"network_unreachable"`
	TimedOut            uint64 `json:"timed_out"`
	Other               uint64 `json:"other"`
}

// UDPTransport sends frames over UDP, one short-lived socket per send.
//
// It is safe for concurrent use. Sends share no lock.
type UDPTransport struct {
	port     int
	resolver Resolver
	dialer   Dialer
	logger   Logger

	sent     atomic.Uint64
	failures [4]atomic.Uint64 // indexed by ErrorKind
}

// NewUDPTransport creates a transport.
func NewUDPTransport(opts TransportOptions) *UDPTransport {
	t := &UDPTransport{
		port:     opts.Port,
		resolver: opts.Resolver,
		dialer:   opts.Dialer,
		logger:   noopLogger{},
	}
	if t.port <= 0 {
		t.port = DefaultPort
	}
	if t.resolver == nil {
		t.resolver = net.DefaultResolver
	}
	if t.dialer == nil {
		t.dialer = &net.Dialer{}
	}
	return t
}

// SetLogger sets the logger for the transport.
func (t *UDPTransport) SetLogger(logger Logger) {
	t.logger = logger
}

// Send resolves address, opens a UDP socket and writes frame once.
//
// address is a hostname or IP literal, optionally with ":port". The attempt
// is bounded by timeout (DefaultTimeout when zero or negative) and by ctx.
// Any failure is returned as a *TransportError. No retry is made.
func (t *UDPTransport) Send(ctx context.Context, address string, frame Frame, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	address = strings.TrimSpace(address)
	err := t.send(ctx, address, frame)
	if err != nil {
		kind := classify(err)
		t.failures[kind].Add(1)
		t.logger.Debug("frame send failed", "address", address, "kind", kind.String(), "error", err)
		return &TransportError{Kind: kind, Address: address, Err: err}
	}

	t.sent.Add(1)
	t.logger.Debug("frame sent", "address", address, "frame", frame.String())
	return nil
}

func (t *UDPTransport) send(ctx context.Context, address string, frame Frame) error {
	host, port, err := t.splitAddress(address)
	if err != nil {
		return err
	}

	ip, err := t.resolve(ctx, host)
	if err != nil {
		return err
	}

	conn, err := t.dialer.DialContext(ctx, "udp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetWriteDeadline(deadline); err != nil {
			return err
		}
	}

	n, err := conn.Write(frame.Bytes())
	if err != nil {
		return err
	}
	if n != FrameSize {
		return fmt.Errorf("wrote %d of %d bytes: %w", n, FrameSize, io.ErrShortWrite)
	}
	return nil
}

// splitAddress separates an optional port from address.
func (t *UDPTransport) splitAddress(address string) (string, int, error) {
	if address == "" {
		return "", 0, &net.AddrError{Err: "empty address", Addr: address}
	}

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// No port. Bare IPv6 literals land here too; strip optional brackets.
		return strings.TrimSuffix(strings.TrimPrefix(address, "["), "]"), t.port, nil
	}
	if host == "" {
		return "", 0, &net.AddrError{Err: "missing host", Addr: address}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, &net.AddrError{Err: "invalid port", Addr: address}
	}
	return host, port, nil
}

// resolve returns an IP literal for host, preferring IPv4.
func (t *UDPTransport) resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), nil
	}
	// Scoped IPv6 literal, e.g. fe80::1%eth0.
	if i := strings.LastIndexByte(host, '%'); i > 0 && net.ParseIP(host[:i]) != nil {
		return host, nil
	}

	addrs, err := t.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
	}
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP.String(), nil
		}
	}
	return addrs[0].String(), nil
}

// Stats returns a snapshot of the transport counters.
func (t *UDPTransport) Stats() TransportStats {
	s := TransportStats{
		FramesSent:          t.sent.Load(),
		UnresolvableAddress: t.failures[KindUnresolvableAddress].Load(),
		NetworkUnreachable:  t.failures[KindNetworkUnreachable].Load(),
		TimedOut:            t.failures[KindTimedOut].Load(),
		Other:               t.failures[KindOther].Load(),
	}
	s.Failures = s.UnresolvableAddress + s.NetworkUnreachable + s.TimedOut + s.Other
	return s
}
