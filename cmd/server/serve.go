package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"realtime-listings/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll continuously and serve recent posts (default)",
	RunE:  serveAction,
}

func serveAction(cmd *cobra.Command, _ []string) error {
	a, err := newApp(configPath)
	if err != nil {
		slog.Error("Failed to start", "error", err)
		return err
	}
	defer a.Close()
	defer a.reporter.Flush(2 * time.Second)

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics Server
	metrics := &http.Server{Addr: a.cfg.Server.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		slog.Info("Starting metrics server", "addr", a.cfg.Server.MetricsAddr)
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	srv := api.NewServer(a.history, a.stats, func() string { return a.poller.State().String() }, a.cfg.Server.RecentLimit)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Starting poller",
			"url", a.cfg.Upstream.URL,
			"interval", a.cfg.Upstream.Interval,
			"publisher", a.cfg.Publisher.Type,
			"config_file", a.cfg.FromFile)
		a.poller.Run(ctx)
		slog.Info("Poller stopped")
	}()

	err = srv.Start(ctx, a.cfg.Server.Port)
	if err != nil {
		slog.Error("API server failed", "error", err)
	}
	stop()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metrics.Shutdown(shutdownCtx)

	slog.Info("Shutting down...")
	return err
}
