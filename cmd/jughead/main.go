// Jughead Core - ball colour command dispatcher
//
// This is the main entry point for jughead-core. It binds ball ids to
// network addresses and sends each ball a single UDP colour-change frame
// on request, from the HTTP API, the MQTT command bus or the interactive
// console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	_ "github.com/nerrad567/jughead-core/migrations"

	"github.com/nerrad567/jughead-core/internal/api"
	"github.com/nerrad567/jughead-core/internal/ball"
	"github.com/nerrad567/jughead-core/internal/bridge"
	"github.com/nerrad567/jughead-core/internal/console"
	"github.com/nerrad567/jughead-core/internal/device"
	"github.com/nerrad567/jughead-core/internal/discovery"
	"github.com/nerrad567/jughead-core/internal/dispatch"
	"github.com/nerrad567/jughead-core/internal/infrastructure/config"
	"github.com/nerrad567/jughead-core/internal/infrastructure/database"
	"github.com/nerrad567/jughead-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/jughead-core/internal/infrastructure/logging"
	"github.com/nerrad567/jughead-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// historyRetention is how long command history rows are kept.
const historyRetention = 30 * 24 * time.Hour

// options are the command-line flags.
type options struct {
	interactive bool
	configPath  string
}

func main() {
	var opts options
	flag.BoolVar(&opts.interactive, "i", false, "Start the interactive operator console")
	flag.StringVar(&opts.configPath, "config", "", "Configuration file path (overrides JUGHEAD_CONFIG)")
	flag.Parse()

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, opts options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting jughead-core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath(opts.configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings. In interactive mode stdout
	// output is routed through the console once it exists.
	sink := &switchWriter{w: os.Stdout}
	if opts.interactive && logsToStdout(cfg.Logging) {
		log = logging.NewWithWriter(cfg.Logging, version, sink)
	} else {
		log = logging.New(cfg.Logging, version)
	}
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	history := dispatch.NewSQLiteHistory(db.DB)
	if pruned, pruneErr := history.Prune(ctx, historyRetention); pruneErr != nil {
		log.Warn("pruning command history failed", "error", pruneErr)
	} else if pruned > 0 {
		log.Info("command history pruned", "rows", pruned)
	}

	// Device registry, seeded from configuration
	registry := device.NewRegistry()
	registry.SetLogger(log)
	if seedErr := registry.Seed(bindingsFromConfig(cfg.Dispatch.Devices)); seedErr != nil {
		return fmt.Errorf("seeding device registry: %w", seedErr)
	}
	log.Info("device registry initialised", "balls", registry.Count())

	transport := ball.NewUDPTransport(ball.TransportOptions{Port: cfg.Dispatch.Port})
	transport.SetLogger(log)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	dispatchOpts := dispatch.Options{
		Registry:  registry,
		Transport: transport,
		Timeout:   cfg.GetDispatchTimeout(),
		Logger:    log,
		History:   history,
	}
	if influxClient != nil {
		dispatchOpts.Metrics = influxClient
	}
	dispatcher, err := dispatch.New(dispatchOpts)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}
	defer func() {
		log.Info("stopping dispatcher")
		if closeErr := dispatcher.Close(); closeErr != nil {
			log.Error("error closing dispatcher", "error", closeErr)
		}
	}()
	log.Info("dispatcher ready", "port", cfg.Dispatch.Port, "timeout", dispatcher.Timeout())

	// Background goroutines stop on ctx; wait for them after cancelling.
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	if influxClient != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reportMetrics(ctx, influxClient, transport, registry, flushInterval(cfg.InfluxDB))
		}()
	}

	// Connect to MQTT broker and start the command bridge (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(ctx, cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		cmdBridge, bridgeErr := bridge.New(bridge.Options{
			MQTT:        mqttClient,
			Dispatcher:  dispatcher,
			Logger:      log,
			EventBuffer: cfg.Dispatch.EventBuffer,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating MQTT bridge: %w", bridgeErr)
		}
		if startErr := cmdBridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			cmdBridge.Stop()
		}()
		log.Info("MQTT bridge started")
	} else {
		log.Info("MQTT disabled")
	}

	// mDNS discovery (optional)
	if cfg.Discovery.Enabled {
		discoverer, discErr := startDiscovery(cfg, dispatcher, log)
		if discErr != nil {
			return fmt.Errorf("starting discovery: %w", discErr)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if runErr := discoverer.Run(ctx); runErr != nil {
				log.Error("mDNS discovery failed", "error", runErr)
			}
		}()
	} else {
		log.Info("mDNS discovery disabled")
	}

	// HTTP API. The API reports checks; startupChecks also covers the API itself.
	checks := map[string]api.HealthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	startupChecks := maps.Clone(checks)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:      cfg.API,
			WS:          cfg.WebSocket,
			Logger:      log,
			Dispatcher:  dispatcher,
			History:     history,
			Transport:   transport,
			Checks:      checks,
			EventBuffer: cfg.Dispatch.EventBuffer,
			Version:     version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		startupChecks["api"] = server
	} else {
		log.Info("API disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, startupChecks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	if opts.interactive {
		con, conErr := console.New(dispatcher)
		if conErr != nil {
			return fmt.Errorf("starting console: %w", conErr)
		}
		sink.Set(con.Stdout())
		defer func() {
			con.Close()
			con.Wait()
			sink.Set(os.Stdout)
		}()

		go con.Run(ctx, cancel)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: console sink, API, discovery
	// and metrics goroutines, MQTT bridge and client, dispatcher,
	// InfluxDB, database.

	log.Info("jughead-core stopped")
	return nil
}

// getConfigPath returns the configuration file path. An explicit flag
// wins, then JUGHEAD_CONFIG, then the default.
func getConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if path := os.Getenv("JUGHEAD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func logsToStdout(cfg config.LoggingConfig) bool {
	switch strings.ToLower(cfg.Output) {
	case "stderr", "discard":
		return false
	}
	return true
}

func bindingsFromConfig(devices []config.DeviceBinding) []device.Binding {
	out := make([]device.Binding, 0, len(devices))
	for _, d := range devices {
		out = append(out, device.Binding{ID: device.DeviceID(d.ID), Address: d.Address})
	}
	return out
}

func startDiscovery(cfg *config.Config, binder discovery.Binder, log *logging.Logger) (*discovery.Discoverer, error) {
	browser, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{
		Service:   cfg.Discovery.Service,
		Domain:    cfg.Discovery.Domain,
		Interface: cfg.Discovery.Interface,
	})
	if err != nil {
		return nil, err
	}
	log.Info("mDNS discovery enabled",
		"service", cfg.Discovery.Service,
		"domain", cfg.Discovery.Domain,
		"override", cfg.Discovery.Override,
	)
	return discovery.New(discovery.Options{
		Browser:       browser,
		Binder:        binder,
		Logger:        log,
		Override:      cfg.Discovery.Override,
		BrowseTimeout: cfg.GetBrowseTimeout(),
	})
}

// healthCheck verifies every registered component is healthy.
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	var errs []error
	for name, c := range checks {
		if err := c.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func flushInterval(cfg config.InfluxDBConfig) time.Duration {
	if cfg.FlushInterval <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.FlushInterval) * time.Second
}

// reportMetrics writes transport counters and registry totals to InfluxDB
// until ctx is cancelled.
func reportMetrics(ctx context.Context, client *influxdb.Client, transport *ball.UDPTransport, registry *device.Registry, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			client.WriteCounters(transportCounters(transport.Stats()))

			var bound, connected int
			states := registry.List()
			for _, st := range states {
				if st.Bound() {
					bound++
				}
				if st.Connected {
					connected++
				}
			}
			client.WritePoint(influxdb.MeasurementRegistry, nil, map[string]interface{}{
				"balls":     len(states),
				"bound":     bound,
				"connected": connected,
			})
		}
	}
}

func transportCounters(s ball.TransportStats) map[string]uint64 {
	return map[string]uint64{
		"frames_sent":          s.FramesSent,
		"failures":             s.Failures,
		"unresolvable_address": s.UnresolvableAddress,
		"network_unreachable":  s.NetworkUnreachable,
		"timed_out":            s.TimedOut,
		"other":                s.Other,
	}
}

// switchWriter forwards writes to a destination that can be replaced
// while the logger is in use.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Set replaces the destination.
func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}
