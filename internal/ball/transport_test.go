package ball

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"syscall"
	"testing"
	"time"
)

// listenUDP starts a loopback listener and returns it with its port.
func listenUDP(t *testing.T) (net.PacketConn, int) {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	t.Cleanup(func() { pc.Close() })
	return pc, pc.LocalAddr().(*net.UDPAddr).Port
}

func readDatagram(t *testing.T, pc net.PacketConn) []byte {
	t.Helper()
	buf := make([]byte, 64)
	if err := pc.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	return buf[:n]
}

type fakeResolver struct {
	addrs map[string][]net.IPAddr
}

func (r fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	if a, ok := r.addrs[host]; ok {
		return a, nil
	}
	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

func TestUDPTransport_SendDeliversFrame(t *testing.T) {
	pc, port := listenUDP(t)
	tr := NewUDPTransport(TransportOptions{})

	frame, err := EncodeColorCommand(Color{R: 255})
	if err != nil {
		t.Fatal(err)
	}
	addr := "127.0.0.1:" + strconv.Itoa(port)
	if err := tr.Send(context.Background(), addr, frame, 0); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got := readDatagram(t, pc)
	want := []byte{0x42, 0, 0, 0, 0, 0, 0, 0, 0x0A, 0xFF, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("datagram = % X, want % X", got, want)
	}

	if s := tr.Stats(); s.FramesSent != 1 || s.Failures != 0 {
		t.Errorf("Stats() = %+v, want 1 sent 0 failures", s)
	}
}

func TestUDPTransport_DefaultPortAndResolver(t *testing.T) {
	pc, port := listenUDP(t)
	tr := NewUDPTransport(TransportOptions{
		Port: port,
		Resolver: fakeResolver{addrs: map[string][]net.IPAddr{
			"ball-1.local": {{IP: net.ParseIP("::1")}, {IP: net.ParseIP("127.0.0.1")}},
		}},
	})

	frame, _ := EncodeColorCommand(Color{G: 10})
	if err := tr.Send(context.Background(), " ball-1.local ", frame, time.Second); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got := readDatagram(t, pc)
	if c, err := DecodeColorCommand(got); err != nil || c != (Color{G: 10}) {
		t.Errorf("decoded = %v, %v; want green 10", c, err)
	}
}

func TestUDPTransport_DialTarget(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{name: "ipv4 default port", address: "10.0.0.5", want: "10.0.0.5:41412"},
		{name: "ipv4 explicit port", address: "10.0.0.5:9000", want: "10.0.0.5:9000"},
		{name: "ipv6 bare", address: "fd00::5", want: "[fd00::5]:41412"},
		{name: "ipv6 bracketed", address: "[fd00::5]", want: "[fd00::5]:41412"},
		{name: "ipv6 with port", address: "[fd00::5]:7000", want: "[fd00::5]:7000"},
		{name: "scoped ipv6", address: "fe80::1%eth0", want: "[fe80::1%eth0]:41412"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dialed string
			tr := NewUDPTransport(TransportOptions{
				Dialer: dialFunc(func(_ context.Context, network, address string) (net.Conn, error) {
					dialed = address
					return nil, errors.New("stop")
				}),
			})
			_ = tr.Send(context.Background(), tt.address, Frame{}, time.Second)
			if dialed != tt.want {
				t.Errorf("dialed %q, want %q", dialed, tt.want)
			}
		})
	}
}

func TestUDPTransport_Classification(t *testing.T) {
	unreachable := &net.OpError{Op: "dial", Net: "udp", Err: os.NewSyscallError("connect", syscall.ENETUNREACH)}
	hostUnreachable := &net.OpError{Op: "write", Net: "udp", Err: os.NewSyscallError("write", syscall.EHOSTUNREACH)}

	tests := []struct {
		name     string
		address  string
		dialErr  error
		wantKind ErrorKind
		want     error
	}{
		{name: "unknown host", address: "nowhere.invalid", wantKind: KindUnresolvableAddress, want: ErrUnresolvableAddress},
		{name: "empty address", address: "   ", wantKind: KindUnresolvableAddress, want: ErrUnresolvableAddress},
		{name: "bad port", address: "10.0.0.1:notaport", wantKind: KindUnresolvableAddress, want: ErrUnresolvableAddress},
		{name: "network unreachable", address: "10.0.0.1", dialErr: unreachable, wantKind: KindNetworkUnreachable, want: ErrNetworkUnreachable},
		{name: "host unreachable", address: "10.0.0.1", dialErr: hostUnreachable, wantKind: KindNetworkUnreachable, want: ErrNetworkUnreachable},
		{name: "unreachable by message", address: "10.0.0.1", dialErr: errors.New("sendto: Network is unreachable"), wantKind: KindNetworkUnreachable, want: ErrNetworkUnreachable},
		{name: "timed out by message", address: "10.0.0.1", dialErr: errors.New("connect timed out"), wantKind: KindTimedOut, want: ErrTimedOut},
		{name: "other", address: "10.0.0.1", dialErr: errors.New("permission denied"), wantKind: KindOther, want: ErrTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewUDPTransport(TransportOptions{
				Resolver: fakeResolver{},
				Dialer: dialFunc(func(context.Context, string, string) (net.Conn, error) {
					if tt.dialErr != nil {
						return nil, tt.dialErr
					}
					t.Fatal("dial reached for an address that should fail earlier")
					return nil, nil
				}),
			})

			err := tr.Send(context.Background(), tt.address, Frame{}, time.Second)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Send() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrTransport) {
				t.Errorf("Send() error = %v, want it to match ErrTransport", err)
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v", got, tt.wantKind)
			}
		})
	}
}

func TestUDPTransport_OtherKeepsMessage(t *testing.T) {
	tr := NewUDPTransport(TransportOptions{
		Dialer: dialFunc(func(context.Context, string, string) (net.Conn, error) {
			return nil, errors.New("socket exploded")
		}),
	})
	err := tr.Send(context.Background(), "10.0.0.1", Frame{}, time.Second)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Send() error = %T, want *TransportError", err)
	}
	if te.Message() != "socket exploded" {
		t.Errorf("Message() = %q, want %q", te.Message(), "socket exploded")
	}
	if te.Address != "10.0.0.1" {
		t.Errorf("Address = %q, want 10.0.0.1", te.Address)
	}
	if errors.Is(err, ErrTimedOut) || errors.Is(err, ErrNetworkUnreachable) {
		t.Error("Other error matched a specific kind")
	}
}

func TestUDPTransport_TimeoutIsBounded(t *testing.T) {
	tr := NewUDPTransport(TransportOptions{
		Dialer: dialFunc(func(ctx context.Context, _, _ string) (net.Conn, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})

	start := time.Now()
	err := tr.Send(context.Background(), "10.0.0.1", Frame{}, 50*time.Millisecond)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("Send() error = %v, want ErrTimedOut", err)
	}
	if elapsed > time.Second {
		t.Errorf("Send() took %v, want it bounded near 50ms", elapsed)
	}
	if s := tr.Stats(); s.TimedOut != 1 || s.Failures != 1 {
		t.Errorf("Stats() = %+v, want one timeout", s)
	}
}

func TestUDPTransport_DefaultTimeout(t *testing.T) {
	var deadline time.Time
	tr := NewUDPTransport(TransportOptions{
		Dialer: dialFunc(func(ctx context.Context, _, _ string) (net.Conn, error) {
			deadline, _ = ctx.Deadline()
			return nil, errors.New("stop")
		}),
	})

	start := time.Now()
	_ = tr.Send(context.Background(), "10.0.0.1", Frame{}, 0)

	remaining := deadline.Sub(start)
	if remaining < 900*time.Millisecond || remaining > 1100*time.Millisecond {
		t.Errorf("deadline %v after start, want about %v", remaining, DefaultTimeout)
	}
}

func TestUDPTransport_ConcurrentSends(t *testing.T) {
	pc, port := listenUDP(t)
	tr := NewUDPTransport(TransportOptions{Port: port})

	const n = 20
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			f, _ := EncodeColorCommand(Color{R: i})
			errs <- tr.Send(context.Background(), "127.0.0.1", f, time.Second)
		}(i)
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Errorf("Send() error = %v", err)
		}
	}

	for i := 0; i < n; i++ {
		if _, err := DecodeColorCommand(readDatagram(t, pc)); err != nil {
			t.Errorf("datagram %d: %v", i, err)
		}
	}
}
