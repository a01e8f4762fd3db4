// Package publish delivers newly detected listings to realtime subscribers.
package publish

import (
	"context"
	"encoding/json"
)

const (
	Channel = "ph-posts"
	Event   = "new-post"
)

// Publisher sends one event on a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Message is the envelope used by backends that have no native notion of
// event names.
type Message struct {
	Channel string          `json:"channel,omitempty"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data"`
}

func encode(channel, event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Channel: channel, Event: event, Data: data})
}
