package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/dispatch"
	"github.com/nerrad567/jughead-core/internal/infrastructure/config"
	"github.com/nerrad567/jughead-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout bounds in-flight requests during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Dispatcher is the subset of *dispatch.Dispatcher the API uses.
type Dispatcher interface {
	SendColorCommand(ctx context.Context, id device.DeviceID, c ball.Color) <-chan dispatch.Result
	BindAddress(id device.DeviceID, address string) error
	State(id device.DeviceID) (device.DeviceState, bool)
	States() []device.DeviceState
	Subscribe(buffer int) (<-chan device.Event, func())
}

// HistoryReader lists recorded commands for a ball.
type HistoryReader interface {
	List(ctx context.Context, id device.DeviceID, limit int) ([]dispatch.HistoryEntry, error)
}

// StatsProvider exposes transport counters.
type StatsProvider interface {
	Stats() ball.TransportStats
}

// HealthChecker is implemented by every infrastructure component.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Dispatcher Dispatcher

	// History is optional; without it the history endpoint returns 503.
	History HistoryReader

	// Transport is optional; without it the metrics endpoint omits counters.
	Transport StatsProvider

	// Checks are reported by the health endpoint keyed by component name.
	Checks map[string]HealthChecker

	// EventBuffer is the registry subscription buffer for the WebSocket relay.
	EventBuffer int

	Version string
}

// Server is the HTTP API server.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	logger      *logging.Logger
	dispatcher  Dispatcher
	history     HistoryReader
	transport   StatsProvider
	checks      map[string]HealthChecker
	eventBuffer int
	version     string
	startedAt   time.Time

	server *http.Server
	addr   net.Addr
	hub    *Hub

	mu     sync.Mutex
	cancel context.CancelFunc
	relay  sync.WaitGroup
}

// New creates a new API server. It is not listening until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	s := &Server{
		cfg:         deps.Config,
		wsCfg:       deps.WS,
		logger:      deps.Logger,
		dispatcher:  deps.Dispatcher,
		history:     deps.History,
		transport:   deps.Transport,
		checks:      deps.Checks,
		eventBuffer: deps.EventBuffer,
		version:     deps.Version,
		startedAt:   time.Now(),
	}
	if s.eventBuffer <= 0 {
		s.eventBuffer = 64
	}
	s.hub = NewHub(s.wsCfg, s.logger)
	return s, nil
}

// Start binds the listener, starts the event relay and serves in the
// background. A bind failure (port in use) is returned directly.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port))
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}

	s.startBackground(ctx)

	s.mu.Lock()
	s.addr = ln.Addr()
	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// startBackground runs the hub and relays registry events to it until
// Close or ctx cancellation.
func (s *Server) startBackground(ctx context.Context) {
	srvCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go s.hub.Run(srvCtx)

	events, unsub := s.dispatcher.Subscribe(s.eventBuffer)
	s.relay.Add(1)
	go func() {
		defer s.relay.Done()
		defer unsub()
		for {
			select {
			case <-srvCtx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				s.hub.Broadcast(string(ev.Type), ev.State)
			}
		}
	}()
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close stops the relay and gracefully shuts the listener down.
func (s *Server) Close() error {
	s.mu.Lock()
	cancel, srv := s.cancel, s.server
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.relay.Wait()
	}
	if srv == nil {
		return nil
	}

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports an error until the server is listening.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.Addr() == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
