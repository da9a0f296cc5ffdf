package config

import (
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config carries the externally supplied inputs: backend base URL and identity
// provider client id, with hardcoded fallbacks for local development.
type Config struct {
	BackendURL     string `env:"CRICKET_BACKEND_URL"`
	GoogleClientID string `env:"CRICKET_GOOGLE_CLIENT_ID"`
	// CallbackAddr is where the loopback sentinel listens for the
	// redirect landing page's completion ping.
	CallbackAddr string `env:"CRICKET_CALLBACK_ADDR"`
	LogLevel     string `env:"CRICKET_LOG_LEVEL"`
}

func Default() *Config {
	return &Config{
		BackendURL:     "http://localhost:8000",
		GoogleClientID: "233096657076-euilsqe9aq3pi8vj41pfjsqcl6nlkker.apps.googleusercontent.com",
		CallbackAddr:   "127.0.0.1:18765",
		LogLevel:       "info",
	}
}

// Load returns the defaults overlaid with CRICKET_* environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	return cfg, nil
}

// WebSocketURL derives the channel endpoint from the backend base URL
// (http → ws, https → wss, path /ws).
func (c *Config) WebSocketURL() (string, error) {
	u, err := url.Parse(c.BackendURL)
	if err != nil {
		return "", errors.Wrapf(err, "parse backend url %q", c.BackendURL)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("backend url %q: unsupported scheme %q", c.BackendURL, u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
