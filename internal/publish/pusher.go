package publish

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pusher/pusher-http-go/v5"
)

type PusherConfig struct {
	AppID   string
	Key     string
	Secret  string
	Cluster string
	// Host overrides the API host, mostly for tests. Insecure switches to
	// plain HTTP when Host is set.
	Host     string
	Insecure bool
}

// Pusher triggers events through the Pusher Channels HTTP API.
type Pusher struct {
	client *pusher.Client
}

func NewPusher(cfg PusherConfig) *Pusher {
	hc := &http.Client{
		Timeout: 10 * time.Second,
	}
	return &Pusher{
		client: &pusher.Client{
			AppID:      cfg.AppID,
			Key:        cfg.Key,
			Secret:     cfg.Secret,
			Cluster:    cfg.Cluster,
			Host:       cfg.Host,
			Secure:     !cfg.Insecure,
			HTTPClient: hc,
		},
	}
}

// Publish ignores ctx; Trigger is bounded by the client timeout instead.
func (p *Pusher) Publish(_ context.Context, channel, event string, payload any) error {
	if err := p.client.Trigger(channel, event, payload); err != nil {
		return fmt.Errorf("pusher trigger %s/%s: %w", channel, event, err)
	}
	return nil
}
