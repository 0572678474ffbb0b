package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	mdwerror "github.com/msto63/callexpr/foundation/core/error"
	"github.com/msto63/callexpr/internal/service"
	"github.com/msto63/callexpr/internal/store"
	coreGrpc "github.com/msto63/callexpr/pkg/core/grpc"
	"github.com/msto63/callexpr/pkg/core/health"
	"github.com/msto63/callexpr/pkg/core/logging"
)

// RequestIDHeader carries the request ID on HTTP requests and responses
const RequestIDHeader = "X-Request-ID"

// Server is the HTTP gateway
type Server struct {
	httpServer *http.Server
	logger     *logging.Logger
}

// Config holds gateway configuration
type Config struct {
	Host         string
	HTTPPort     int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Service *service.Service
	History store.Store      // optional
	Health  *health.Registry // optional
	Logger  *logging.Logger
}

// DefaultConfig returns default gateway configuration
func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		HTTPPort:     8310,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// New creates a new gateway
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, mdwerror.New("parse service is required").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("gateway.New")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("callexpr-gateway")
	}

	registry := cfg.Health
	if registry == nil {
		registry = health.NewRegistry("callexpr-gateway", "")
		registry.Register(health.Listening("http"))
	}

	h := NewHandler(cfg.Service, cfg.History, registry, logger)
	wsHandler := NewWebSocketHandler(cfg.Service, logger)

	// Create HTTP mux
	mux := http.NewServeMux()

	// WebSocket route
	mux.Handle("/api/v1/ws", wsHandler)

	// API routes
	mux.Handle("/", h)
	mux.Handle("/api/v1/", h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort),
		Handler:      requestIDMiddleware(loggingMiddleware(logger, mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		httpServer: httpServer,
		logger:     logger,
	}, nil
}

// requestIDMiddleware propagates or assigns a request ID
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(coreGrpc.WithRequestID(r.Context(), id)))
	})
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
			"request_id", coreGrpc.GetRequestID(r.Context()),
		)
	})
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the WebSocket upgrader take over the connection
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Unwrap exposes the underlying writer to http.ResponseController
func (w *responseWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Handler returns the root HTTP handler including middleware
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Serve serves on listener until Stop
func (s *Server) Serve(listener net.Listener) error {
	s.logger.Info("Starting callexpr HTTP gateway", "address", listener.Addr().String())
	if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping callexpr HTTP gateway")
	return s.httpServer.Shutdown(ctx)
}

