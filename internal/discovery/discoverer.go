package discovery

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/jughead-core/internal/device"
)

// Logger defines the logging interface used by the discoverer.
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

// Binder is the slice of the dispatcher the discoverer writes to.
type Binder interface {
	State(id device.DeviceID) (device.DeviceState, bool)
	BindAddress(id device.DeviceID, address string) error
}

// Options configures a Discoverer.
type Options struct {
	Browser Browser
	Binder  Binder
	Logger  Logger

	// Override lets announcements replace addresses that are already bound.
	Override bool

	// BrowseTimeout limits Run to a single scan of this length.
	// Zero browses until ctx is cancelled.
	BrowseTimeout time.Duration
}

// Discoverer binds announced balls into the registry.
type Discoverer struct {
	browser  Browser
	binder   Binder
	logger   Logger
	override bool
	window   time.Duration

	bound   atomic.Uint64
	skipped atomic.Uint64
}

// Stats counts what the discoverer has done with announcements.
type Stats struct {
	Bound   uint64 `json:"bound"`
	Skipped uint64 `json:"skipped"`
}

// New creates a Discoverer.
func New(opts Options) (*Discoverer, error) {
	if opts.Browser == nil {
		return nil, ErrNoBrowser
	}
	if opts.Binder == nil {
		return nil, ErrNoBinder
	}
	d := &Discoverer{
		browser:  opts.Browser,
		binder:   opts.Binder,
		logger:   opts.Logger,
		override: opts.Override,
		window:   opts.BrowseTimeout,
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d, nil
}

// Run browses and applies every announcement until the browse ends.
// Cancellation and scan expiry are normal terminations and return nil.
func (d *Discoverer) Run(ctx context.Context) error {
	if d.window > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.window)
		defer cancel()
	}

	services, err := d.browser.Browse(ctx)
	if err != nil {
		return err
	}

	d.logger.Info("mDNS discovery started", "override", d.override, "window", d.window)
	for svc := range services {
		d.Apply(svc)
	}
	d.logger.Info("mDNS discovery stopped", "bound", d.bound.Load(), "skipped", d.skipped.Load())
	return nil
}

// Apply binds one announced service. It reports whether the registry
// changed.
func (d *Discoverer) Apply(svc Service) bool {
	b, err := svc.Binding()
	if err != nil {
		d.skipped.Add(1)
		d.logger.Debug("ignoring mDNS service", "instance", svc.Instance, "error", err)
		return false
	}

	if st, ok := d.binder.State(b.ID); ok && st.Bound() {
		if st.Address == b.Address {
			return false
		}
		if !d.override {
			d.skipped.Add(1)
			d.logger.Debug("ball already bound, keeping address",
				"ball", int(b.ID), "address", st.Address, "announced", b.Address)
			return false
		}
	}

	if err := d.binder.BindAddress(b.ID, b.Address); err != nil {
		d.skipped.Add(1)
		d.logger.Warn("binding discovered ball failed", "ball", int(b.ID), "error", err)
		return false
	}

	d.bound.Add(1)
	d.logger.Info("ball discovered", "ball", int(b.ID), "address", b.Address, "instance", svc.Instance)
	return true
}

// Stats returns a snapshot of the counters.
func (d *Discoverer) Stats() Stats {
	return Stats{Bound: d.bound.Load(), Skipped: d.skipped.Load()}
}
