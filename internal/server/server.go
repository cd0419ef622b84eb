// Package server exposes the HTTP surface: upload ingestion, task polling,
// format discovery, artifact delivery, and operational endpoints. The
// orchestration core never sees a request the ingestion path rejected.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"converteasy/internal/cleanup"
	"converteasy/internal/config"
	"converteasy/internal/deps"
	"converteasy/internal/logging"
	"converteasy/internal/ratelimit"
	"converteasy/internal/registry"
	"converteasy/internal/store"
	"converteasy/internal/task"
)

// Version is reported by the health endpoint.
const Version = "2.2.0"

// Submitter enqueues a task that is already persisted in the queued state.
type Submitter interface {
	Submit(t *task.Task) error
}

// Sweeper runs one manual cleanup pass.
type Sweeper interface {
	RunOnce(ctx context.Context) cleanup.Summary
}

// Server is the HTTP front of the daemon.
type Server struct {
	cfg        *config.Config
	store      store.Store
	dispatcher Submitter
	registry   *registry.Registry
	sweeper    Sweeper
	limiter    *ratelimit.Limiter
	logger     *slog.Logger

	listener net.Listener
	server   *http.Server
}

// New wires the HTTP surface over the orchestration core.
func New(cfg *config.Config, st store.Store, disp Submitter, reg *registry.Registry, sweeper Sweeper, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		dispatcher: disp,
		registry:   reg,
		sweeper:    sweeper,
		limiter:    ratelimit.New(cfg.RateLimit.Points, time.Duration(cfg.RateLimit.DurationSeconds)*time.Second),
		logger:     logging.NewComponentLogger(logger, "server"),
	}

	s.server = &http.Server{
		Handler:           s.rateLimited(s.routes()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the full middleware-wrapped handler for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/convert/upload", s.handleUpload)
	mux.HandleFunc("/convert/task/", s.handleTaskStatus)
	mux.HandleFunc("/supported-formats", s.handleSupportedFormats)
	mux.HandleFunc("/detect-targets", s.handleDetectTargets)
	mux.HandleFunc("/download/", s.handleDownload)
	mux.HandleFunc("/preview/", s.handlePreview)
	mux.Handle("/public/", http.StripPrefix("/public/", http.FileServer(http.Dir(s.cfg.Paths.PublicDir))))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/server-status", s.handleServerStatus)
	mux.HandleFunc("/cleanup", s.handleCleanup)
	mux.HandleFunc("/tasks", s.handleTasks)
	return mux
}

// Start begins serving on the configured bind address. Shutdown is tied to
// ctx cancellation as well as an explicit Stop.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.cfg.Paths.APIBind)
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests and closes the listener.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// rateLimited enforces the per-client fixed window in front of every route
// except the health probe.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		decision := s.limiter.Allow(clientKey(r))
		if !decision.Allowed {
			retryAfter := int(decision.RetryAfter.Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			s.writeError(w, http.StatusTooManyRequests, fmt.Sprintf("rate limit exceeded, retry in %ds", retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies a client for rate limiting, honoring the first
// forwarded address when the daemon sits behind a proxy.
func clientKey(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"message": message})
}

// depsSnapshot reports tool and program availability for the status page.
func (s *Server) depsSnapshot() []deps.Status {
	statuses := deps.CheckBinaries(deps.Requirements(s.cfg))
	return append(statuses, deps.CheckPrograms(s.registry)...)
}
