// Package api provides the HTTP REST API and WebSocket endpoint for whipd.
//
// REST callers authenticate with a bearer token and trigger actuations; the
// remote agent holds a persistent WebSocket connection keyed by the same
// token. The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/martinevsky/whip-core/internal/command"
	"github.com/martinevsky/whip-core/internal/infrastructure/config"
	"github.com/martinevsky/whip-core/internal/infrastructure/influxdb"
	"github.com/martinevsky/whip-core/internal/infrastructure/logging"
	"github.com/martinevsky/whip-core/internal/registry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// clientGaugeInterval is how often the connected-client count is sampled
// for telemetry.
const clientGaugeInterval = 30 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.APIConfig
	WS         config.WebSocketConfig
	Logger     *logging.Logger
	Registry   *registry.Registry
	Dispatcher *command.Dispatcher
	AuditRepo  command.Repository // optional: /commands returns 404 when nil
	Telemetry  *influxdb.Client   // optional: connected-client gauge
	Version    string
}

// Server is the HTTP API server for whipd.
//
// It manages the HTTP listener, routes, middleware, and WebSocket sessions.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	logger     *logging.Logger
	registry   *registry.Registry
	dispatcher *command.Dispatcher
	auditRepo  command.Repository
	tsdb       *influxdb.Client
	version    string
	server     *http.Server
	ctx        context.Context    // lifetime of background goroutines and sessions
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("connection registry is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	return &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		logger:     deps.Logger,
		registry:   deps.Registry,
		dispatcher: deps.Dispatcher,
		auditRepo:  deps.AuditRepo,
		tsdb:       deps.Telemetry,
		version:    deps.Version,
	}, nil
}

// Start binds the listener and begins serving HTTP connections.
//
// Binding happens synchronously so a port conflict is reported to the caller
// instead of being lost in a goroutine. Serving continues in the background
// until Close().
//
// Parameters:
//   - ctx: Context for background goroutine cancellation
//
// Returns:
//   - error: If the listener cannot bind (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.ctx = srvCtx

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding API listener on %s: %w", addr, err)
	}

	s.logger.Info("API server listening", "address", addr)

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	if s.tsdb != nil {
		go s.clientGaugeLoop(srvCtx)
	}

	return nil
}

// clientGaugeLoop periodically samples the connected-agent count for telemetry.
func (s *Server) clientGaugeLoop(ctx context.Context) {
	ticker := time.NewTicker(clientGaugeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tsdb.WriteClientGauge(s.registry.Count())
		}
	}
}

// Close gracefully shuts down the API server.
//
// It cancels all open WebSocket sessions, then waits up to 10 seconds for
// in-flight requests to complete before forcefully closing remaining
// connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
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
