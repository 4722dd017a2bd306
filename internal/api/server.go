package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nullmatrix0/zaunch/internal/bridge"
	"github.com/nullmatrix0/zaunch/internal/config"
	"github.com/nullmatrix0/zaunch/internal/endpoint"
)

// HealthChecker reports whether the ledger connection is usable.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Server represents the API server
type Server struct {
	config   *config.Config
	orch     *bridge.Orchestrator
	resolver bridge.SendPathResolver
	programs endpoint.Programs
	payer    solana.PublicKey
	ledger   HealthChecker
	router   *mux.Router
	server   *http.Server
	logger   zerolog.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	orch *bridge.Orchestrator,
	resolver bridge.SendPathResolver,
	programs endpoint.Programs,
	payer solana.PublicKey,
	ledger HealthChecker,
	logger zerolog.Logger,
) *Server {
	router := mux.NewRouter()

	s := &Server{
		config:   cfg,
		orch:     orch,
		resolver: resolver,
		programs: programs,
		payer:    payer,
		ledger:   ledger,
		router:   router,
		logger:   logger.With().Str("component", "api").Logger(),
	}

	// Setup routes
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ready", s.handleReady).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API v1
	v1 := s.router.PathPrefix("/v1").Subrouter()

	// Vault endpoints
	v1.HandleFunc("/vault/{mint}/init", s.handleVaultInit).Methods("POST")
	v1.HandleFunc("/vault/{mint}", s.handleVaultStatus).Methods("GET")

	// Bridge endpoints
	v1.HandleFunc("/lock", s.handleLock).Methods("POST")
	v1.HandleFunc("/bridge", s.handleBridgeTicket).Methods("POST")
	v1.HandleFunc("/bridge/full", s.handleBridgeFull).Methods("POST")

	// Send-path preview
	v1.HandleFunc("/resolve", s.handleResolve).Methods("GET")

	// Apply middleware
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoverMiddleware)
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("Starting API server")

	return s.server.ListenAndServe()
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping API server")
	return s.server.Shutdown(ctx)
}

// Health check handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"service":     "zaunch-bridged",
		"environment": s.config.Environment,
		"timestamp":   time.Now().UTC(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.ledger.IsHealthy(r.Context()) {
		respondError(w, http.StatusServiceUnavailable, "no healthy RPC endpoint", nil)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
	})
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error().
					Interface("error", err).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				respondError(w, http.StatusInternalServerError, "internal server error", nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	respondJSON(w, status, response)
}
