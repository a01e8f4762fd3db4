// Package api serves the most recently detected listings and the rolling
// counts over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"realtime-listings/internal/listing"
	"realtime-listings/internal/state"
)

// RecentSource is the read side of the history store.
type RecentSource interface {
	Recent(n int) []listing.Listing
}

type StatsSource interface {
	Snapshot() state.Snapshot
}

// Server exposes the read-only query endpoints. status reports the
// scheduler state for the health check.
type Server struct {
	recent     RecentSource
	stats      StatsSource
	status     func() string
	limit      int
	httpServer *http.Server
}

func NewServer(recent RecentSource, stats StatsSource, status func() string, limit int) *Server {
	return &Server{
		recent: recent,
		stats:  stats,
		status: status,
		limit:  limit,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /posts", s.handlePosts)
	mux.HandleFunc("GET /stats/24hours.json", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return logRequests(mux)
}

// Start serves on port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "port", port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("Shutting down API server")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.recent.Recent(s.limit))
}

type statsItem struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// handleStats renders the rolling counts as a two element list: the total,
// then the buckets oldest first.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.stats.Snapshot()

	buckets := make([]int, len(snap.Buckets))
	for i, v := range snap.Buckets {
		buckets[len(buckets)-1-i] = v
	}

	writeJSON(w, map[string][]any{
		"item": {
			statsItem{Text: "Past 24 hours", Value: snap.Total},
			buckets,
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"status": "ok",
		"state":  s.status(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("API request received", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
