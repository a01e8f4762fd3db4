package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"realtime-listings/internal/listing"
	"realtime-listings/internal/state"
)

const DefaultPath = "config.yaml"

type UpstreamConfig struct {
	URL       string        `yaml:"url"`
	Token     string        `yaml:"token"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Interval  time.Duration `yaml:"interval"`
}

type PublisherConfig struct {
	Type    string        `yaml:"type"` // "pusher" (default), "redis" or "webhook"
	Pusher  PusherConfig  `yaml:"pusher"`
	Redis   RedisConfig   `yaml:"redis"`
	Webhook WebhookConfig `yaml:"webhook"`
}

type PusherConfig struct {
	AppID   string `yaml:"app_id"`
	Key     string `yaml:"key"`
	Secret  string `yaml:"secret"`
	Cluster string `yaml:"cluster"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
}

type WebhookConfig struct {
	URL string `yaml:"url"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsAddr string `yaml:"metrics_addr"`
	RecentLimit int    `yaml:"recent_limit"`
}

type AppConfig struct {
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Publisher PublisherConfig `yaml:"publisher"`
	Server    ServerConfig    `yaml:"server"`
	SentryDSN string          `yaml:"sentry_dsn"`
	LogLevel  string          `yaml:"log_level"`

	// FromFile reports whether a local config file was found.
	FromFile bool `yaml:"-"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Upstream: UpstreamConfig{
			URL:       listing.DefaultURL,
			UserAgent: listing.DefaultUserAgent,
			Timeout:   listing.DefaultTimeout,
			Interval:  2 * time.Second,
		},
		Publisher: PublisherConfig{
			Type: "pusher",
		},
		Server: ServerConfig{
			Port:        5001,
			MetricsAddr: ":9090",
			RecentLimit: 50,
		},
		LogLevel: "info",
	}
}

// Load reads the config file at path. A missing file is not an error: the
// credentials are then taken from the environment instead. PORT overrides
// the listen port either way.
func Load(path string) (*AppConfig, error) {
	c := defaults()

	err := loadYaml(path, c)
	switch {
	case err == nil:
		c.FromFile = true
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("Local config not found, falling back to environment variables", "path", path)
		fromEnv(c)
	default:
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if p := os.Getenv("PORT"); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		c.Server.Port = port
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func fromEnv(c *AppConfig) {
	c.Upstream.Token = os.Getenv("PRODUCTHUNT_TOKEN")
	c.Publisher.Pusher = PusherConfig{
		AppID:   os.Getenv("PUSHER_APP_ID"),
		Key:     os.Getenv("PUSHER_APP_KEY"),
		Secret:  os.Getenv("PUSHER_APP_SECRET"),
		Cluster: os.Getenv("PUSHER_CLUSTER"),
	}
	c.Publisher.Redis = RedisConfig{
		Address:  os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	c.Publisher.Webhook.URL = os.Getenv("WEBHOOK_URL")
	setIf(&c.Publisher.Type, os.Getenv("PUBLISHER"))
	setIf(&c.LogLevel, os.Getenv("LOG_LEVEL"))

	// SENTRY_DSL is the historical name of the variable.
	c.SentryDSN = os.Getenv("SENTRY_DSN")
	setIf(&c.SentryDSN, os.Getenv("SENTRY_DSL"))
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *AppConfig) validate() error {
	if c.Upstream.URL == "" {
		return errors.New("upstream url is required")
	}
	if c.Upstream.Interval <= 0 {
		return fmt.Errorf("upstream interval must be positive, got %s", c.Upstream.Interval)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", c.Upstream.Timeout)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.RecentLimit <= 0 {
		return fmt.Errorf("recent_limit must be positive, got %d", c.Server.RecentLimit)
	}
	if c.Server.RecentLimit > state.DefaultHistoryCap {
		return fmt.Errorf("recent_limit %d exceeds the %d listings kept in history", c.Server.RecentLimit, state.DefaultHistoryCap)
	}

	switch c.Publisher.Type {
	case "pusher":
		p := c.Publisher.Pusher
		if p.AppID == "" || p.Key == "" || p.Secret == "" {
			return errors.New("pusher publisher requires app_id, key and secret")
		}
	case "redis":
		if c.Publisher.Redis.Address == "" {
			return errors.New("redis publisher requires an address")
		}
	case "webhook":
		if c.Publisher.Webhook.URL == "" {
			return errors.New("webhook publisher requires a url")
		}
	default:
		return fmt.Errorf("unknown publisher type %q", c.Publisher.Type)
	}
	return nil
}

// Level maps LogLevel onto slog levels, defaulting to info.
func (c *AppConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func loadYaml(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
