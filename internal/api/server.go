// Package api provides the HTTP REST API and WebSocket server for ScopeSync.
//
// It exposes the parameter registry to editors and control surfaces: parameter
// reads and writes, host slot automation, device snapshots and persisted
// parameter state. Accepted parameter changes are broadcast to WebSocket
// clients.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bcmodular/scopesync-core/internal/infrastructure/config"
	"github.com/bcmodular/scopesync-core/internal/infrastructure/logging"
	"github.com/bcmodular/scopesync-core/internal/parameter"
	"github.com/bcmodular/scopesync-core/internal/registry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ConnectionStatus reports whether an external link is up.
type ConnectionStatus interface {
	IsConnected() bool
}

// StatsProvider exposes connection pool statistics.
type StatsProvider interface {
	Stats() sql.DBStats
}

// TelemetryStats exposes recorder counters.
type TelemetryStats interface {
	Stats() (written, dropped uint64)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Registry   *registry.Registry
	Repository registry.Repository // optional: state save/load return 503 without it
	MQTT       ConnectionStatus    // optional
	DB         StatsProvider       // optional
	Telemetry  TelemetryStats      // optional
	Instance   config.InstanceConfig
	Version    string

	// DeviceFrames reports how many async frames the device link has
	// processed. Optional.
	DeviceFrames func() uint64
}

// Server is the HTTP API server for ScopeSync.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg            config.APIConfig
	wsCfg          config.WebSocketConfig
	logger         *logging.Logger
	registry       *registry.Registry
	repo           registry.Repository
	mqtt           ConnectionStatus
	db             StatsProvider
	telemetry      TelemetryStats
	deviceFrames   func() uint64
	instance       config.InstanceConfig
	version        string
	startTime      time.Time
	server         *http.Server
	hub            *Hub
	removeObserver func()
	cancel         context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, registry)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("parameter registry is required")
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		logger:       deps.Logger,
		registry:     deps.Registry,
		repo:         deps.Repository,
		mqtt:         deps.MQTT,
		db:           deps.DB,
		telemetry:    deps.Telemetry,
		deviceFrames: deps.DeviceFrames,
		instance:     deps.Instance,
		version:      deps.Version,
		startTime:    time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, registers a registry observer that relays
// parameter changes to WebSocket clients, and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the hub and observer lifetime
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	s.startBackground(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// startBackground creates the hub and the change relay.
func (s *Server) startBackground(ctx context.Context) {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	s.removeObserver = s.registry.AddObserver(parameter.ObserverFunc(func(c parameter.Change) {
		s.hub.BroadcastChange(c)
	}))
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.removeObserver != nil {
		s.removeObserver()
		s.removeObserver = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
