// Package config loads installer configuration from an optional YAML file,
// layered under flag and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the process-wide installer settings. Values are set once at
// startup and only read afterwards.
type Config struct {
	// SocketPath is the stackpilotd unix socket.
	SocketPath string
	// SecretPath is the shared signing secret file (created on first run).
	SecretPath string
	// ConnectTimeout bounds connect and I/O for a single daemon call.
	ConnectTimeout time.Duration
	// ProbeAttempts bounds the startup readiness loop.
	ProbeAttempts int
	// RequireDaemon makes a failed readiness probe fatal instead of degrading
	// to direct execution for the rest of the run.
	RequireDaemon bool
	// StateDir holds logs and other persistent installer state.
	StateDir string
}

// rawConfig is the YAML shape. Durations are strings ("30s", "5m") because
// yaml.v3 only decodes bare integers into time.Duration; pointers distinguish
// an unset key from an explicit zero.
type rawConfig struct {
	SocketPath     string `yaml:"socket_path"`
	SecretPath     string `yaml:"secret_path"`
	ConnectTimeout string `yaml:"connect_timeout"`
	ProbeAttempts  *int   `yaml:"probe_attempts"`
	RequireDaemon  *bool  `yaml:"require_daemon"`
	StateDir       string `yaml:"state_dir"`
}

func (r rawConfig) apply(cfg *Config) error {
	if r.SocketPath != "" {
		cfg.SocketPath = r.SocketPath
	}
	if r.SecretPath != "" {
		cfg.SecretPath = r.SecretPath
	}
	if r.ConnectTimeout != "" {
		d, err := time.ParseDuration(r.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("connect_timeout: %w", err)
		}
		cfg.ConnectTimeout = d
	}
	if r.ProbeAttempts != nil {
		cfg.ProbeAttempts = *r.ProbeAttempts
	}
	if r.RequireDaemon != nil {
		cfg.RequireDaemon = *r.RequireDaemon
	}
	if r.StateDir != "" {
		cfg.StateDir = r.StateDir
	}
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SocketPath:     "/run/stackpilotd.sock",
		SecretPath:     "/etc/stackpilot/secret",
		ConnectTimeout: 300 * time.Second,
		ProbeAttempts:  30,
		RequireDaemon:  false,
		StateDir:       DefaultStateDir(),
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error: the defaults apply unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := raw.apply(&cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the client cannot operate with.
func (c Config) Validate() error {
	if c.SocketPath == "" {
		return fmt.Errorf("socket_path must not be empty")
	}
	if c.SecretPath == "" {
		return fmt.Errorf("secret_path must not be empty")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout)
	}
	if c.ProbeAttempts <= 0 {
		return fmt.Errorf("probe_attempts must be positive, got %d", c.ProbeAttempts)
	}
	return nil
}

// DefaultStateDir returns XDG_STATE_HOME/stackpilot or ~/.local/state/stackpilot.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "stackpilot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".stackpilot", "state")
	}
	return filepath.Join(home, ".local", "state", "stackpilot")
}
