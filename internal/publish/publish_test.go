package publish

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"realtime-listings/internal/listing"
)

var sample = listing.New(json.RawMessage(`{"id":42,"name":"Widget"}`))

func TestRedisPublish(t *testing.T) {
	mr := miniredis.RunT(t)

	pub, err := NewRedis(mr.Addr(), "")
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer func() { _ = pub.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()}).Subscribe(ctx, Channel)
	defer func() { _ = sub.Close() }()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := pub.Publish(ctx, Channel, Event, sample); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got Message
	if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Event != Event || got.Channel != Channel {
		t.Errorf("envelope = %+v", got)
	}
	if string(got.Data) != `{"id":42,"name":"Widget"}` {
		t.Errorf("data = %s", got.Data)
	}
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedis(addr, ""); err == nil {
		t.Fatal("expected connection error")
	}
}

func TestWebhookPublish(t *testing.T) {
	var got Message
	var ua, ctype string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		ctype = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	wh := NewWebhook(ts.URL, "test-agent")
	if err := wh.Publish(context.Background(), Channel, Event, sample); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ua != "test-agent" || ctype != "application/json" {
		t.Errorf("headers: ua=%q content-type=%q", ua, ctype)
	}
	if got.Event != Event || got.Channel != Channel || string(got.Data) != string(sample.Raw) {
		t.Errorf("message = %+v", got)
	}
}

func TestWebhookPublish_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	err := NewWebhook(ts.URL, "x").Publish(context.Background(), Channel, Event, sample)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want status 502", err)
	}
}

func TestWebhookPublish_ReusesConnectionAfterErrorBody(t *testing.T) {
	var conns atomic.Int32
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("upstream exploded ", 256)))
	}))
	ts.Config.ConnState = func(_ net.Conn, s http.ConnState) {
		if s == http.StateNew {
			conns.Add(1)
		}
	}
	ts.Start()
	defer ts.Close()

	wh := NewWebhook(ts.URL, "x")
	for i := 0; i < 3; i++ {
		if err := wh.Publish(context.Background(), Channel, Event, sample); err == nil {
			t.Fatalf("publish %d: expected status error", i)
		}
	}
	if n := conns.Load(); n != 1 {
		t.Errorf("connections = %d, want 1 reused connection", n)
	}
}

func TestNewPusher_ClientTimeout(t *testing.T) {
	p := NewPusher(PusherConfig{AppID: "1", Key: "k", Secret: "s"})
	if p.client.HTTPClient == nil || p.client.HTTPClient.Timeout != 10*time.Second {
		t.Fatalf("pusher http client = %+v, want 10s timeout", p.client.HTTPClient)
	}
}

func TestPusherPublish(t *testing.T) {
	var path string
	var body struct {
		Name     string   `json:"name"`
		Channels []string `json:"channels"`
		Data     string   `json:"data"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode %s: %v", raw, err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	p := NewPusher(PusherConfig{
		AppID:    "123",
		Key:      "key",
		Secret:   "secret",
		Host:     strings.TrimPrefix(ts.URL, "http://"),
		Insecure: true,
	})
	if err := p.Publish(context.Background(), Channel, Event, sample); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if path != "/apps/123/events" {
		t.Errorf("path = %q", path)
	}
	if body.Name != Event || len(body.Channels) != 1 || body.Channels[0] != Channel {
		t.Errorf("body = %+v", body)
	}
	if body.Data != `{"id":42,"name":"Widget"}` {
		t.Errorf("data = %q", body.Data)
	}
}

func TestPusherPublish_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`auth failed`))
	}))
	defer ts.Close()

	p := NewPusher(PusherConfig{AppID: "1", Key: "k", Secret: "s", Host: strings.TrimPrefix(ts.URL, "http://"), Insecure: true})
	if err := p.Publish(context.Background(), Channel, Event, sample); err == nil {
		t.Fatal("expected error")
	}
}
