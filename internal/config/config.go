// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// devOrigins are always accepted so a local client can talk to the server
var devOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Config holds the server settings
type Config struct {
	Port           int           `env:"PORT" envDefault:"3001"`
	ClientURL      string        `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"development"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	ReconnectGrace time.Duration `env:"RECONNECT_GRACE" envDefault:"30s"`
	OTelEndpoint   string        `env:"OTEL_ENDPOINT"`
	Debug          bool          `env:"DEBUG"`
}

// Load parses the environment into a Config
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.ReconnectGrace <= 0 {
		return Config{}, fmt.Errorf("invalid RECONNECT_GRACE %s", cfg.ReconnectGrace)
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	return cfg, nil
}

// Addr is the listen address
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Origins returns every origin the websocket endpoint accepts, deduplicated
func (c Config) Origins() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(o string) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			return
		}
		seen[o] = true
		out = append(out, o)
	}
	add(c.ClientURL)
	for _, o := range c.AllowedOrigins {
		add(o)
	}
	for _, o := range devOrigins {
		add(o)
	}
	return out
}
