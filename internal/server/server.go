// Package server exposes the prediction service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/mindcareai/mindcare/internal/history"
	"github.com/mindcareai/mindcare/internal/predict"
	"github.com/mindcareai/mindcare/internal/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Config holds the server configuration
type Config struct {
	Host            string
	Port            int
	Concurrency     int
	EnableMetrics   bool
	EnableCORS      bool
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		Concurrency:     64,
		EnableMetrics:   true,
		EnableCORS:      true,
		MaxBodyBytes:    1 << 20,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// History stores scored assessments. *history.Store satisfies it.
type History interface {
	Save(ctx context.Context, rec record.Record, res predict.Result) (*history.Assessment, error)
	List(ctx context.Context, limit int) ([]history.Assessment, error)
	Get(ctx context.Context, id uuid.UUID) (*history.Assessment, error)
	Alerts(ctx context.Context, limit int) ([]history.Alert, error)
}

// Option configures a Server.
type Option func(*Server)

// WithHistory stores every prediction and enables the assessment routes.
func WithHistory(h History) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithRegistry registers metrics with reg and serves /metrics from it
// instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

// Server represents the MindCare HTTP server
type Server struct {
	config     *Config
	service    *predict.Service
	history    History
	tracker    *Tracker
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	server     *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader
}

// New creates a new MindCare server around an already loaded service.
func New(config *Config, service *predict.Service, opts ...Option) (*Server, error) {
	if service == nil {
		return nil, errors.New("server requires a prediction service")
	}
	if config == nil {
		config = DefaultConfig()
	}

	server := &Server{
		config:     config,
		service:    service,
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return config.EnableCORS // Allow all origins if CORS enabled
			},
		},
	}
	for _, opt := range opts {
		opt(server)
	}
	server.tracker = NewTrackerWithRegistry(config.Concurrency, server.registerer)

	return server, nil
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	// Apply CORS middleware to all routes if enabled
	if s.config.EnableCORS {
		router.Use(s.corsMiddleware)
	}

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requestIDMiddleware)
	api.Use(s.loggingMiddleware)

	// Prediction endpoints
	api.HandleFunc("/predict", s.predict).Methods("POST")
	api.HandleFunc("/predict/stream", s.streamPredictions).Methods("GET")

	// Inspection endpoints
	api.HandleFunc("/model", s.modelInfo).Methods("GET")
	api.HandleFunc("/rules", s.ruleTables).Methods("GET")

	// History endpoints
	api.HandleFunc("/assessments", s.listAssessments).Methods("GET")
	api.HandleFunc("/assessments/{id}", s.getAssessment).Methods("GET")
	api.HandleFunc("/alerts", s.listAlerts).Methods("GET")

	// Handle OPTIONS for CORS preflight
	if s.config.EnableCORS {
		api.Methods("OPTIONS").HandlerFunc(s.handleOptions)
	}

	// Metrics endpoint
	if s.config.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Health check
	router.HandleFunc("/health", s.healthCheck)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener

	s.server = &http.Server{
		Addr:         listener.Addr().String(),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	bundle := s.service.Bundle()
	log.Info().
		Str("addr", s.server.Addr).
		Str("model_type", bundle.Info.ModelType).
		Str("fingerprint", bundle.Fingerprint).
		Int("concurrency", s.config.Concurrency).
		Bool("metrics", s.config.EnableMetrics).
		Bool("history", s.history != nil).
		Msg("Starting MindCare server")

	// Start server
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	return nil
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Info().Msg("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// StartWithGracefulShutdown starts the server and blocks until SIGINT or
// SIGTERM, then drains in-flight requests.
func (s *Server) StartWithGracefulShutdown() error {
	if err := s.Start(); err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer shutdownCancel()

		if err := s.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}

		cancel()
	}()

	// Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("Server shutdown complete")
	return nil
}

// GetAddr returns the server address. After Start it reports the bound
// address, so a zero port resolves to the one the kernel picked.
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// handleOptions handles CORS preflight requests
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	// CORS headers are already set by middleware
	w.WriteHeader(http.StatusOK)
}
