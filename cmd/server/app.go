package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"realtime-listings/internal/config"
	"realtime-listings/internal/listing"
	"realtime-listings/internal/poller"
	"realtime-listings/internal/publish"
	"realtime-listings/internal/report"
	"realtime-listings/internal/state"
)

// app holds the wired components shared by serve and once.
type app struct {
	cfg      *config.AppConfig
	history  *state.History
	stats    *state.Stats
	reporter report.Reporter
	poller   *poller.Poller
	closers  []io.Closer
}

func newApp(path string) (*app, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	reporter, err := report.New(cfg.SentryDSN, Version)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		history:  state.NewHistory(state.DefaultHistoryCap),
		stats:    state.NewStats(),
		reporter: reporter,
	}

	pub, err := a.newPublisher()
	if err != nil {
		return nil, err
	}

	client := listing.NewClient(cfg.Upstream.URL, cfg.Upstream.Token,
		listing.WithUserAgent(cfg.Upstream.UserAgent),
		listing.WithTimeout(cfg.Upstream.Timeout))

	a.poller = poller.New(client, a.history, a.stats, pub,
		poller.WithInterval(cfg.Upstream.Interval),
		poller.WithReporter(reporter))
	return a, nil
}

func (a *app) newPublisher() (publish.Publisher, error) {
	pc := a.cfg.Publisher
	switch pc.Type {
	case "redis":
		slog.Info("Using Redis publisher", "address", pc.Redis.Address)
		r, err := publish.NewRedis(pc.Redis.Address, pc.Redis.Password)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r)
		return r, nil
	case "webhook":
		slog.Info("Using webhook publisher", "url", pc.Webhook.URL)
		return publish.NewWebhook(pc.Webhook.URL, a.cfg.Upstream.UserAgent), nil
	case "pusher":
		slog.Info("Using Pusher publisher", "app_id", pc.Pusher.AppID, "cluster", pc.Pusher.Cluster)
		return publish.NewPusher(publish.PusherConfig{
			AppID:   pc.Pusher.AppID,
			Key:     pc.Pusher.Key,
			Secret:  pc.Pusher.Secret,
			Cluster: pc.Pusher.Cluster,
		}), nil
	default:
		return nil, fmt.Errorf("unknown publisher type %q", pc.Type)
	}
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close", "error", err)
		}
	}
}
