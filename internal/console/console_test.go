package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/dispatch"
)

type fakeSender struct {
	mu     sync.Mutex
	err    error
	frames []ball.Frame
}

func (f *fakeSender) Send(_ context.Context, _ string, frame ball.Frame, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return f.err
}

// syncBuffer is a bytes.Buffer safe for the console's result goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestConsole(t *testing.T) (*Console, *syncBuffer, *fakeSender) {
	t.Helper()
	reg := device.NewRegistry()
	if err := reg.Seed([]device.Binding{{ID: 1}, {ID: 2, Address: "10.0.0.2"}}); err != nil {
		t.Fatal(err)
	}
	sender := &fakeSender{}
	d, err := dispatch.New(dispatch.Options{Registry: reg, Transport: sender})
	if err != nil {
		t.Fatal(err)
	}
	out := &syncBuffer{}
	return newConsole(d, out), out, sender
}

func run(t *testing.T, c *Console, lines ...string) {
	t.Helper()
	for _, l := range lines {
		c.Execute(context.Background(), l)
	}
	c.Wait()
}

func TestExecute_Exit(t *testing.T) {
	c, _, _ := newTestConsole(t)
	for _, cmd := range []string{"exit", "quit", "Q"} {
		if !c.Execute(context.Background(), cmd) {
			t.Errorf("Execute(%q) = false, want exit", cmd)
		}
	}
	if c.Execute(context.Background(), "   ") {
		t.Error("blank line requested exit")
	}
}

func TestExecute_List(t *testing.T) {
	c, out, _ := newTestConsole(t)
	run(t, c, "list")

	got := out.String()
	for _, want := range []string{"BALL", "10.0.0.2", "unbound", "#ffffff"} {
		if !strings.Contains(got, want) {
			t.Errorf("list output missing %q:\n%s", want, got)
		}
	}
}

func TestExecute_BindAndColor(t *testing.T) {
	c, out, sender := newTestConsole(t)
	run(t, c, "bind 1 192.168.1.7", "color 1 purple")

	got := out.String()
	if !strings.Contains(got, "Ball 1 bound to 192.168.1.7.") {
		t.Errorf("missing bind confirmation:\n%s", got)
	}
	if !strings.Contains(got, "Ball 1: Color sent to 192.168.1.7 #800080.") {
		t.Errorf("missing colour result:\n%s", got)
	}

	want, _ := ball.EncodeColorCommand(ball.Color{R: 128, B: 128})
	if len(sender.frames) != 1 || sender.frames[0] != want {
		t.Errorf("frames = %v", sender.frames)
	}
}

func TestExecute_ColorFailures(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"color 1 red", "Ball 1: No address set for ball 1. Enter an IP address first."},
		{"color x red", `Invalid ball id "x"`},
		{"color 2 mauve", "Invalid color for ball 2"},
		{"color 2", "Usage: color <id> <colour>"},
		{"bind", "Usage: bind <id> [address]"},
		{"fly 2", "Unknown command: fly"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c, out, _ := newTestConsole(t)
			run(t, c, tt.line)
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestExecute_ColorTransportError(t *testing.T) {
	c, out, sender := newTestConsole(t)
	sender.err = &ball.TransportError{Kind: ball.KindTimedOut, Address: "10.0.0.2", Err: errors.New("i/o timeout")}

	run(t, c, "color 2 255,0,0")
	if !strings.Contains(out.String(), "Connection timed out. Ball at 10.0.0.2 not responding.") {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecute_Say(t *testing.T) {
	c, out, sender := newTestConsole(t)
	run(t, c, "say 2 make it grean please")

	if !strings.Contains(out.String(), `Heard "grean" as green (80% match).`) {
		t.Errorf("output = %q", out.String())
	}
	if len(sender.frames) != 1 {
		t.Fatalf("frames sent = %d, want 1", len(sender.frames))
	}

	c, out, sender = newTestConsole(t)
	run(t, c, "say 2 good morning")
	if !strings.Contains(out.String(), "No colour recognised.") || len(sender.frames) != 0 {
		t.Errorf("output = %q, frames = %d", out.String(), len(sender.frames))
	}
}

func TestExecute_Unbind(t *testing.T) {
	c, out, _ := newTestConsole(t)
	run(t, c, "bind 2", "color 2 red")

	got := out.String()
	if !strings.Contains(got, "Ball 2 unbound.") || !strings.Contains(got, "No address set for ball 2") {
		t.Errorf("output = %q", got)
	}
}

func TestExecute_PaletteAndDecode(t *testing.T) {
	c, out, _ := newTestConsole(t)
	run(t, c, "palette", "decode 42 00 00 00 00 00 00 00 0A FF A5 00", "decode 43")

	got := out.String()
	if !strings.Contains(got, "teal") || !strings.Contains(got, "#008080") {
		t.Errorf("palette output missing teal:\n%s", got)
	}
	if !strings.Contains(got, "Colour change rgb(255,165,0) #ffa500") {
		t.Errorf("decode output missing colour:\n%s", got)
	}
	if !strings.Contains(got, "Decode failed") {
		t.Errorf("short frame not rejected:\n%s", got)
	}
}
