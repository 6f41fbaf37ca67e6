// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import "time"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file; empty disables persistence and
	// the service runs with an in-memory nop store.
	DBPath string `koanf:"db_path"`

	// JWTSecret signs the session_token cookies issued by /register.
	JWTSecret string `koanf:"jwt_secret"`

	// TokenTTL bounds the lifetime of issued client tokens.
	TokenTTL time.Duration `koanf:"token_ttl"`

	// ScoreTimeout bounds how long a session waits for each judge's score.
	ScoreTimeout time.Duration `koanf:"score_timeout"`

	// PingInterval sets the SSE keepalive comment cadence.
	PingInterval time.Duration `koanf:"ping_interval"`

	// ClientQueueSize bounds each client's outbound frame queue.
	ClientQueueSize int `koanf:"client_queue_size"`

	// PermanentClients are the roster ids retained across all competitions
	// in a session (director plus scoreboards).
	PermanentClients []string `koanf:"permanent_clients"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		DBPath:           "",
		JWTSecret:        "change-me",
		TokenTTL:         time.Hour,
		ScoreTimeout:     30 * time.Second,
		PingInterval:     30 * time.Second,
		ClientQueueSize:  64,
		PermanentClients: []string{"dj0", "sb10"},
	}
}
