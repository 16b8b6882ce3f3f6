package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/rzbill/zkhook/internal/backoff"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	// Port is the registration API listen port.
	Port int `json:"port" yaml:"port"`
	// DataDir holds the Pebble store. Empty means DefaultDataDir().
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Fsync is one of always|interval|never.
	Fsync string `json:"fsync" yaml:"fsync"`

	Stream    StreamConfig    `json:"stream" yaml:"stream"`
	Delivery  DeliveryConfig  `json:"delivery" yaml:"delivery"`
	Reconnect ReconnectConfig `json:"reconnect" yaml:"reconnect"`

	// TagVictimRole tags filters derived from the victim with the victim role
	// instead of the attacker role.
	TagVictimRole bool `json:"tagVictimRole" yaml:"tagVictimRole"`

	Log logpkg.Config `json:"log" yaml:"log"`
}

// StreamConfig describes the upstream killstream websocket.
type StreamConfig struct {
	URL         string   `json:"url" yaml:"url"`
	Channel     string   `json:"channel" yaml:"channel"`
	ReadTimeout Duration `json:"readTimeout" yaml:"readTimeout"`
}

// DeliveryConfig bounds outbound webhook calls.
type DeliveryConfig struct {
	Timeout       Duration `json:"timeout" yaml:"timeout"`
	MaxConcurrent int      `json:"maxConcurrent" yaml:"maxConcurrent"`
	UserAgent     string   `json:"userAgent" yaml:"userAgent"`
}

// ReconnectConfig is the bounded backoff applied between stream sessions.
// Type is one of none|fixed|exp|exp-jitter.
type ReconnectConfig struct {
	Type   string   `json:"type" yaml:"type"`
	Base   Duration `json:"base" yaml:"base"`
	Cap    Duration `json:"cap" yaml:"cap"`
	Factor float64  `json:"factor" yaml:"factor"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Port:  3000,
		Fsync: "interval",
		Stream: StreamConfig{
			URL:         "wss://zkillboard.com/websocket/",
			Channel:     "killstream",
			ReadTimeout: Duration(2 * time.Minute),
		},
		Delivery: DeliveryConfig{
			Timeout:       Duration(10 * time.Second),
			MaxConcurrent: 64,
			UserAgent:     "zkhook",
		},
		Reconnect: ReconnectConfig{
			Type:   string(backoff.Exp),
			Base:   Duration(time.Second),
			Cap:    Duration(time.Minute),
			Factor: 2.0,
		},
		Log: logpkg.Config{Level: "info", Format: "text", Redact: []string{"webhook"}},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	if c.Stream.URL == "" {
		return errors.New("config: stream url is required")
	}
	if c.Delivery.MaxConcurrent <= 0 {
		return fmt.Errorf("config: delivery.maxConcurrent must be positive, got %d", c.Delivery.MaxConcurrent)
	}
	switch c.Fsync {
	case "always", "interval", "never":
	default:
		return fmt.Errorf("config: invalid fsync %q; use always|interval|never", c.Fsync)
	}
	if _, err := backoff.ParseType(c.Reconnect.Type); err != nil {
		return fmt.Errorf("config: reconnect: %w", err)
	}
	return nil
}

// Addr returns the listen address for the registration API.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }
