// Package api exposes the health surface over HTTP for external
// health checks. The monitor CRUD surface lives in a separate service
// and is not served here.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/pagewatch/pagewatch/internal/types"
)

// HealthSource provides the current health snapshot, implemented by the
// scheduler
type HealthSource interface {
	Health() types.HealthStatus
}

// Server serves the health endpoint
type Server struct {
	srv *http.Server
}

// NewServer creates the HTTP server on addr (e.g. ":8090")
func NewServer(addr string, source HealthSource) *Server {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := source.Health()
		w.Header().Set("Content-Type", "application/json")
		if !status.Healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "api: failed to encode health response: %v\n", err)
		}
	}).Methods(http.MethodGet)

	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
	}
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "api: health server error: %v\n", err)
		}
	}()
	fmt.Printf("API: health endpoint listening on %s\n", s.srv.Addr)
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
