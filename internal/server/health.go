// Package server provides the ops surface: health endpoints and graceful
// shutdown. The request-serving API of this system lives at the transport
// boundary outside this module.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/eddyvy/enscli-ai-manager/internal/vector"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck is the result of probing one dependency.
type HealthCheck struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthResponse is the body served by the health endpoints.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker probes one dependency.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthServer serves /health, /ready and /live.
type HealthServer struct {
	mu       sync.RWMutex
	checks   map[string]HealthChecker
	version  string
	ready    bool
	shutdown chan struct{}
}

// NewHealthServer creates a health server; it starts not-ready.
func NewHealthServer(version string) *HealthServer {
	return &HealthServer{
		checks:   make(map[string]HealthChecker),
		version:  version,
		shutdown: make(chan struct{}),
	}
}

// RegisterCheck adds a named dependency probe.
func (s *HealthServer) RegisterCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = checker
}

// SetReady flips the readiness probe.
func (s *HealthServer) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// Handler returns the health endpoints.
func (s *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/live", s.handleLive)
	return mux
}

// ListenAndServe starts serving until Shutdown.
func (s *HealthServer) ListenAndServe(addr string) error {
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		<-s.shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	return srv.ListenAndServe()
}

// Shutdown stops the health server.
func (s *HealthServer) Shutdown() {
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s.mu.RLock()
	checks := make(map[string]HealthChecker, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	version := s.version
	s.mu.RUnlock()

	resp := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
	}
	for name, checker := range checks {
		check := checker(ctx)
		check.Name = name
		resp.Checks = append(resp.Checks, check)
		if check.Status == HealthStatusUnhealthy {
			resp.Status = HealthStatusUnhealthy
		}
	}

	status := http.StatusOK
	if resp.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *HealthServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	resp := HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()}
	if !ready {
		resp.Status = HealthStatusUnhealthy
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HealthServer) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: HealthStatusHealthy, Timestamp: time.Now().UTC()})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// VectorStoreCheck probes the remote collection store.
func VectorStoreCheck(store vector.Store) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := store.Ping(ctx); err != nil {
			return HealthCheck{Status: HealthStatusUnhealthy, Message: err.Error()}
		}
		return HealthCheck{Status: HealthStatusHealthy}
	}
}
