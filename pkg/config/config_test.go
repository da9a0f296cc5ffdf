package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.BackendURL)
	assert.NotEmpty(t, cfg.GoogleClientID)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("CRICKET_BACKEND_URL", "https://chat.example.com")
	t.Setenv("CRICKET_GOOGLE_CLIENT_ID", "my-client")
	t.Setenv("CRICKET_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", cfg.BackendURL)
	assert.Equal(t, "my-client", cfg.GoogleClientID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestWebSocketURL(t *testing.T) {
	cfg := &Config{BackendURL: "http://localhost:8000"}
	ws, err := cfg.WebSocketURL()
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8000/ws", ws)

	cfg.BackendURL = "https://chat.example.com/"
	ws, err = cfg.WebSocketURL()
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/ws", ws)

	cfg.BackendURL = "ftp://nope"
	_, err = cfg.WebSocketURL()
	require.Error(t, err)
}
