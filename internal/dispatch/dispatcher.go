package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
)

// sinkTimeout bounds each history write so a slow disk cannot hold a result.
const sinkTimeout = 2 * time.Second

// Logger defines the logging interface used by the Dispatcher.
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

// HistoryRecorder receives one entry per command attempt.
type HistoryRecorder interface {
	Record(ctx context.Context, entry HistoryEntry) error
}

// MetricsWriter receives one point per command attempt. It must not block.
type MetricsWriter interface {
	WriteCommandMetric(deviceID int, outcome string, duration time.Duration)
}

// Options configures a Dispatcher.
type Options struct {
	// Registry is required.
	Registry *device.Registry

	// Transport is required.
	Transport ball.Sender

	// Timeout bounds each send. Zero selects ball.DefaultTimeout.
	Timeout time.Duration

	Logger  Logger
	History HistoryRecorder
	Metrics MetricsWriter
}

// Result is the outcome of one colour command.
type Result struct {
	DeviceID device.DeviceID `json:"device_id"`
	Color    ball.Color      `json:"color"`
	Address  string          `json:"address,omitempty"`

	// Err is nil on success.
	Err error `json:"-"`

	// Message is a sentence describing the outcome for display.
	Message string `json:"message"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// OK reports whether the command was handed to the network successfully.
func (r Result) OK() bool {
	return r.Err == nil
}

// Outcome returns the outcome label for r.
func (r Result) Outcome() string {
	return OutcomeOf(r.Err)
}

// Dispatcher is the entry point for sending colour commands to balls.
//
// Each command is a single fire-and-forget attempt; nothing is retried.
// Commands for different balls run concurrently.
type Dispatcher struct {
	registry  *device.Registry
	transport ball.Sender
	timeout   time.Duration
	logger    Logger
	history   HistoryRecorder
	metrics   MetricsWriter

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

// New creates a Dispatcher.
func New(opts Options) (*Dispatcher, error) {
	if opts.Registry == nil {
		return nil, errors.New("dispatch: registry is required")
	}
	if opts.Transport == nil {
		return nil, errors.New("dispatch: transport is required")
	}

	d := &Dispatcher{
		registry:  opts.Registry,
		transport: opts.Transport,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		history:   opts.History,
		metrics:   opts.Metrics,
	}
	if d.timeout <= 0 {
		d.timeout = ball.DefaultTimeout
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d, nil
}

// Timeout returns the per-send bound.
func (d *Dispatcher) Timeout() time.Duration {
	return d.timeout
}

// SendColorCommand starts a colour command and returns immediately.
//
// The returned channel receives exactly one Result and is then closed.
// Once the send has started it runs to completion or timeout even if ctx
// is cancelled; ctx is only consulted before the send begins.
func (d *Dispatcher) SendColorCommand(ctx context.Context, id device.DeviceID, c ball.Color) <-chan Result {
	out := make(chan Result, 1)

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		out <- d.finish(ctx, Result{DeviceID: id, Color: c, StartedAt: time.Now().UTC(), Err: ErrClosed})
		close(out)
		return out
	}
	d.inflight.Add(1)
	d.mu.RUnlock()

	go func() {
		defer d.inflight.Done()
		defer close(out)
		out <- d.Send(ctx, id, c)
	}()
	return out
}

// Send performs a colour command and waits for its outcome.
//
// Steps: ctx must still be live, the ball must have a bound address, the
// colour must encode, the colour is recorded as last requested, then one
// frame is sent. Connectivity is updated from the outcome unless the ball
// was rebound meanwhile.
func (d *Dispatcher) Send(ctx context.Context, id device.DeviceID, c ball.Color) Result {
	res := Result{DeviceID: id, Color: c, StartedAt: time.Now().UTC()}

	if !id.Valid() {
		res.Err = fmt.Errorf("%w: %w", ErrInvalidArgument, device.ErrInvalidDeviceID)
		return d.finish(ctx, res)
	}

	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrCancelled, err)
		return d.finish(ctx, res)
	}

	state, ok := d.registry.Get(id)
	if !ok || !state.Bound() {
		res.Err = ErrNoAddressBound
		return d.finish(ctx, res)
	}
	res.Address = state.Address

	frame, err := ball.EncodeColorCommand(c)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		return d.finish(ctx, res)
	}

	if err := d.registry.RecordColor(id, c); err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		return d.finish(ctx, res)
	}

	// Detached so an abandoned caller does not cut the write short; the
	// transport deadline still bounds it.
	sendErr := d.transport.Send(context.WithoutCancel(ctx), res.Address, frame, d.timeout)
	res.Err = sendErr

	reason := ""
	if sendErr != nil {
		reason = Message(sendErr, id, res.Address)
	}
	if _, err := d.registry.RecordOutcomeFor(id, res.Address, sendErr == nil, reason); err != nil {
		d.logger.Warn("recording outcome failed", "ball", int(id), "error", err)
	}

	return d.finish(ctx, res)
}

// finish fills in the message and duration, logs, and feeds the sinks.
func (d *Dispatcher) finish(ctx context.Context, res Result) Result {
	res.Duration = time.Since(res.StartedAt)
	res.Message = Message(res.Err, res.DeviceID, res.Address)
	outcome := res.Outcome()

	if res.Err == nil {
		d.logger.Info("color sent",
			"ball", int(res.DeviceID),
			"address", res.Address,
			"color", res.Color.Hex(),
			"duration_ms", res.Duration.Milliseconds(),
		)
	} else {
		d.logger.Warn("color command failed",
			"ball", int(res.DeviceID),
			"address", res.Address,
			"outcome", outcome,
			"error", res.Err,
		)
	}

	if d.metrics != nil {
		d.metrics.WriteCommandMetric(int(res.DeviceID), outcome, res.Duration)
	}

	if d.history != nil && res.DeviceID.Valid() {
		hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
		entry := HistoryEntry{
			DeviceID:  res.DeviceID,
			Address:   res.Address,
			Color:     res.Color,
			Outcome:   outcome,
			Duration:  res.Duration,
			CreatedAt: res.StartedAt,
		}
		if res.Err != nil {
			entry.Error = res.Message
		}
		if err := d.history.Record(hctx, entry); err != nil {
			d.logger.Error("recording command history failed", "ball", int(res.DeviceID), "error", err)
		}
		cancel()
	}

	return res
}

// BindAddress sets the address for a ball.
func (d *Dispatcher) BindAddress(id device.DeviceID, address string) error {
	return d.registry.BindAddress(id, address)
}

// State returns the state of one ball.
func (d *Dispatcher) State(id device.DeviceID) (device.DeviceState, bool) {
	return d.registry.Get(id)
}

// States returns the state of every known ball ordered by id.
func (d *Dispatcher) States() []device.DeviceState {
	return d.registry.List()
}

// Subscribe streams registry events. See device.Registry.Subscribe.
func (d *Dispatcher) Subscribe(buffer int) (<-chan device.Event, func()) {
	return d.registry.Subscribe(buffer)
}

// Close rejects new commands and waits for in-flight ones to finish.
// Each in-flight command is bounded by the send timeout.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.inflight.Wait()
	return nil
}
