package stock

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"signal_bridge/internal/domain"
	"signal_bridge/internal/infra"
	"signal_bridge/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// SandboxProvisioner backs /init-sandbox and /reset-sandbox.
type SandboxProvisioner interface {
	Enabled() bool
	Init(ctx context.Context) (service.SandboxStatus, error)
	Reset(ctx context.Context) (service.SandboxStatus, error)
}

// MetricsSource backs /metrics.
type MetricsSource interface {
	Snapshot() infra.MetricsSnapshot
}

// TickerLister backs the ticker list of GET /.
type TickerLister interface {
	Symbols() []string
}

// ServerDeps groups the collaborators of Server.
type ServerDeps struct {
	Webhook *WebhookHandler
	Sandbox SandboxProvisioner
	Metrics MetricsSource
	Tickers TickerLister
}

// Server exposes the webhook and the operator endpoints over HTTP.
type Server struct {
	deps   ServerDeps
	router *mux.Router
	http   *http.Server
	logger *slog.Logger
}

var endpoints = []string{
	"POST /webhook",
	"GET /init-sandbox",
	"GET /reset-sandbox",
	"GET /metrics",
	"GET /health",
}

// NewServer wires the routes. CORS is enabled only when origins are given.
func NewServer(addr string, corsOrigins []string, deps ServerDeps) *Server {
	s := &Server{
		deps:   deps,
		router: mux.NewRouter(),
		logger: slog.Default().With("module", "http"),
	}
	s.setupRoutes()

	var handler http.Handler = s.router
	if len(corsOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", requestIDHeader},
		})
		handler = c.Handler(s.router)
	}

	s.http = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleIndex).Methods("GET")
	s.router.HandleFunc("/webhook", s.deps.Webhook.HandleWebhook).Methods("POST")
	s.router.HandleFunc("/init-sandbox", s.handleInitSandbox).Methods("GET")
	s.router.HandleFunc("/reset-sandbox", s.handleResetSandbox).Methods("GET")
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the routed handler (CORS included when configured).
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start serves until Shutdown is called. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info("🚀 HTTP server starting", slog.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// ==============================
// Operator Handlers
// ==============================

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tickers := []string{}
	if s.deps.Tickers != nil {
		tickers = s.deps.Tickers.Symbols()
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "running",
		"sandbox":   s.deps.Sandbox != nil && s.deps.Sandbox.Enabled(),
		"endpoints": endpoints,
		"tickers":   tickers,
	})
}

func (s *Server) handleInitSandbox(w http.ResponseWriter, r *http.Request) {
	s.runSandbox(w, r, "init")
}

func (s *Server) handleResetSandbox(w http.ResponseWriter, r *http.Request) {
	s.runSandbox(w, r, "reset")
}

func (s *Server) runSandbox(w http.ResponseWriter, r *http.Request, op string) {
	if s.deps.Sandbox == nil || !s.deps.Sandbox.Enabled() {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Status: "error",
			Error:  "SandboxDisabled",
			Detail: domain.ErrSandboxDisabled.Error(),
		})
		return
	}

	var status service.SandboxStatus
	var err error
	if op == "reset" {
		status, err = s.deps.Sandbox.Reset(r.Context())
	} else {
		status, err = s.deps.Sandbox.Init(r.Context())
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "sandbox "+op+" failed", slog.Any("error", err))
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Status: "error",
			Error:  "SandboxFailure",
			Detail: err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"accountId": status.AccountID,
		"reused":    status.Reused,
		"balances":  status.Balances,
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.deps.Metrics == nil {
		respondJSON(w, http.StatusOK, map[string]any{})
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Metrics.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
