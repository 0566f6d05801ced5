// Package console provides the interactive operator command line.
//
// Colour commands return immediately; their outcome is printed when the
// dispatcher delivers it, so the prompt never blocks on the network.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/chzyer/readline"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/dispatch"
	"github.com/nerrad567/jughead-core/internal/voice"
)

// Dispatcher is the slice of the dispatcher the console drives.
type Dispatcher interface {
	SendColorCommand(ctx context.Context, id device.DeviceID, c ball.Color) <-chan dispatch.Result
	BindAddress(id device.DeviceID, address string) error
	States() []device.DeviceState
}

// Console handles interactive mode for jughead.
type Console struct {
	dispatcher Dispatcher
	rl         *readline.Instance
	out        io.Writer

	// mu serialises writes from asynchronous result printers.
	mu        sync.Mutex
	pending   sync.WaitGroup
	closeOnce sync.Once
}

// New creates a console reading from the terminal.
func New(d Dispatcher) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "jughead> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(d, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(d Dispatcher, out io.Writer) *Console {
	return &Console{dispatcher: d, out: out}
}

func completer() *readline.PrefixCompleter {
	colors := make([]readline.PrefixCompleterInterface, 0, len(ball.Palette()))
	for _, nc := range ball.Palette() {
		colors = append(colors, readline.PcItem(nc.Name))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("list"),
		readline.PcItem("bind"),
		readline.PcItem("color", colors...),
		readline.PcItem("say"),
		readline.PcItem("palette"),
		readline.PcItem("decode"),
		readline.PcItem("exit"),
	)
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	if c.rl == nil {
		return c.out
	}
	return c.rl.Stdout()
}

// Run starts the interactive command loop. It calls cancel when the
// operator exits or input ends.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			c.println("Exiting...")
			cancel()
			return
		}

		if quit := c.Execute(ctx, line); quit {
			c.println("Exiting...")
			cancel()
			return
		}
	}
}

// Close releases the terminal and unblocks a pending Run.
func (c *Console) Close() {
	c.closeOnce.Do(func() {
		if c.rl != nil {
			c.rl.Close() //nolint:errcheck // terminal teardown
		}
	})
}

// Execute runs one command line. It reports whether the operator asked to
// exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "list", "ls":
		c.cmdList()
	case "bind", "b":
		c.cmdBind(args)
	case "color", "colour", "c":
		c.cmdColor(ctx, args)
	case "say":
		c.cmdSay(ctx, args)
	case "palette", "p":
		c.cmdPalette()
	case "decode":
		c.cmdDecode(args)
	case "quit", "exit", "q":
		return true
	default:
		c.printf("Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

// Wait blocks until every outstanding colour result has been printed.
func (c *Console) Wait() {
	c.pending.Wait()
}

func (c *Console) printHelp() {
	c.println(`
Jughead Commands:
  list                   - Show every ball with address, colour and status
  bind <id> [address]    - Bind a ball to an IP or host[:port]; no address unbinds
  color <id> <colour>    - Send a colour (name, #rrggbb or r,g,b)
  say <id> <transcript>  - Match a spoken colour name and send it
  palette                - List the predefined colours
  decode <hex>           - Decode a 12-byte colour frame
  exit                   - Quit`)
}

func (c *Console) cmdList() {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BALL\tADDRESS\tCOLOUR\tSTATUS")
	for _, st := range c.dispatcher.States() {
		addr := st.Address
		if addr == "" {
			addr = "-"
		}
		status := "connected"
		switch {
		case !st.Bound():
			status = "unbound"
		case !st.Connected:
			status = "error: " + st.LastError
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.ID, addr, st.Color.Hex(), status)
	}
	w.Flush() //nolint:errcheck // terminal output
}

func (c *Console) cmdBind(args []string) {
	if len(args) < 1 || len(args) > 2 {
		c.println("Usage: bind <id> [address]")
		return
	}
	id, err := device.ParseDeviceID(args[0])
	if err != nil {
		c.printf("Invalid ball id %q: ids must be positive.\n", args[0])
		return
	}
	addr := ""
	if len(args) == 2 {
		addr = args[1]
	}
	if err := c.dispatcher.BindAddress(id, addr); err != nil {
		c.printf("Bind failed: %v\n", err)
		return
	}
	if addr == "" {
		c.printf("Ball %d unbound.\n", id)
		return
	}
	c.printf("Ball %d bound to %s.\n", id, addr)
}

func (c *Console) cmdColor(ctx context.Context, args []string) {
	if len(args) < 2 {
		c.println("Usage: color <id> <colour>")
		return
	}
	id, err := device.ParseDeviceID(args[0])
	if err != nil {
		c.printf("Invalid ball id %q: ids must be positive.\n", args[0])
		return
	}
	col, err := ball.ParseColor(strings.Join(args[1:], ""))
	if err != nil {
		c.printf("Invalid color for ball %d: %v\n", id, err)
		return
	}
	c.send(ctx, id, col)
}

func (c *Console) cmdSay(ctx context.Context, args []string) {
	if len(args) < 2 {
		c.println("Usage: say <id> <transcript>")
		return
	}
	id, err := device.ParseDeviceID(args[0])
	if err != nil {
		c.printf("Invalid ball id %q: ids must be positive.\n", args[0])
		return
	}
	m, ok := voice.MatchColor(strings.Join(args[1:], " "))
	if !ok {
		c.println("No colour recognised.")
		return
	}
	c.printf("Heard %q as %s (%d%% match).\n", m.Word, m.Name, int(m.Score*100))
	c.send(ctx, id, m.Color)
}

// send starts a colour command and prints its outcome when it arrives.
func (c *Console) send(ctx context.Context, id device.DeviceID, col ball.Color) {
	results := c.dispatcher.SendColorCommand(ctx, id, col)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		res := <-results
		if res.OK() {
			c.printf("Ball %d: %s %s.\n", id, res.Message, col.Hex())
			return
		}
		c.printf("Ball %d: %s\n", id, res.Message)
	}()
}

func (c *Console) cmdPalette() {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	for _, nc := range ball.Palette() {
		fmt.Fprintf(w, "%s\t%s\t%d,%d,%d\n", nc.Name, nc.Color.Hex(), nc.Color.R, nc.Color.G, nc.Color.B)
	}
	w.Flush() //nolint:errcheck // terminal output
}

func (c *Console) cmdDecode(args []string) {
	if len(args) == 0 {
		c.println("Usage: decode <hex>")
		return
	}
	raw, err := ball.ParseFrameHex(strings.Join(args, " "))
	if err != nil {
		c.printf("Decode failed: %v\n", err)
		return
	}
	col, err := ball.DecodeColorCommand(raw)
	if err != nil {
		c.printf("Decode failed: %v\n", err)
		return
	}
	c.printf("Colour change %s %s\n", col, col.Hex())
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
