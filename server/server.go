// Package server exposes the analysis job control surface over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RyanBlaney/cry-sonar/analysis"
	"github.com/RyanBlaney/cry-sonar/logging"
	"github.com/gorilla/mux"
)

// JobService is the part of analysis.Service the API needs
type JobService interface {
	Start(ctx context.Context, sourceID string) (analysis.JobHandle, error)
	Status(ctx context.Context, sourceID string) (analysis.StatusReport, error)
	Result(ctx context.Context, sourceID string) (*analysis.AnalysisResult, error)
}

// Server is the status-polling HTTP API
type Server struct {
	http    *http.Server
	handler *Handler
}

// New creates a server listening on addr
func New(addr string, service JobService) *Server {
	handler := NewHandler(service)
	return &Server{
		handler: handler,
		http: &http.Server{
			Addr:         addr,
			Handler:      handler.Router(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// ListenAndServe serves until Shutdown
func (s *Server) ListenAndServe() error {
	logging.WithFields(logging.Fields{
		"component": "http_server",
		"addr":      s.http.Addr,
	}).Info("HTTP server listening")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Router builds the route table
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1/analysis").Subrouter()
	api.HandleFunc("/start", h.StartAnalysis).Methods(http.MethodPost)
	api.HandleFunc("/status/{file_id}", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/results/{file_id}", h.GetResults).Methods(http.MethodGet)

	return router
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		logging.Debug("HTTP request", logging.Fields{
			"component": "http_server",
			"method":    r.Method,
			"path":      r.URL.Path,
			"elapsed":   time.Since(started).String(),
		})
	})
}
