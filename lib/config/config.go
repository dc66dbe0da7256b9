// Copyright 2026 The Gwdash Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development against a mock or local API.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Session storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the master configuration for gwdash.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// API configures the remote dashboard service.
	API APIConfig `yaml:"api"`

	// Session configures credential persistence.
	Session SessionConfig `yaml:"session"`

	// Navigation configures forced navigation after session expiry.
	Navigation NavigationConfig `yaml:"navigation"`

	// Notifications configures the user-visible notification channel.
	Notifications NotificationsConfig `yaml:"notifications"`

	// Per-environment overrides, applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Nil pointers leave the base value alone.
type ConfigOverrides struct {
	API     *APIOverrides     `yaml:"api,omitempty"`
	Session *SessionOverrides `yaml:"session,omitempty"`
}

// APIOverrides overrides [APIConfig] fields.
type APIOverrides struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// SessionOverrides overrides [SessionConfig] fields.
type SessionOverrides struct {
	Backend       string `yaml:"backend,omitempty"`
	RedisURL      string `yaml:"redis_url,omitempty"`
	IdentityFile  string `yaml:"identity_file,omitempty"`
	VerifyOnStart *bool  `yaml:"verify_on_start,omitempty"`
}

// APIConfig configures the remote dashboard service.
type APIConfig struct {
	// BaseURL is prefixed to every request path.
	// Default: http://localhost:8000
	BaseURL string `yaml:"base_url"`

	// Timeout bounds each request from dispatch to response body.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig configures credential persistence.
type SessionConfig struct {
	// Backend selects the storage: file, memory, or redis.
	Backend string `yaml:"backend"`

	// Key is the storage key holding the persisted session.
	// Default: auth-storage
	Key string `yaml:"key"`

	// Directory holds one file per key for the file backend.
	// Default: ${HOME}/.config/gwdash
	Directory string `yaml:"directory"`

	// RedisURL is the redis:// URL for the redis backend.
	RedisURL string `yaml:"redis_url"`

	// IdentityFile is an age identity. When set, the persisted session
	// is encrypted to it.
	IdentityFile string `yaml:"identity_file"`

	// VerifyOnStart re-validates a rehydrated session against the
	// server before first use. Off by default: a stale credential is
	// discovered by the first 401.
	VerifyOnStart bool `yaml:"verify_on_start"`
}

// NavigationConfig configures forced navigation.
type NavigationConfig struct {
	// EntryRoute is where the user is sent after session expiry.
	// Default: /login
	EntryRoute string `yaml:"entry_route"`
}

// NotificationsConfig configures notification delivery and wording.
type NotificationsConfig struct {
	// BufferSize is the dispatcher queue capacity.
	BufferSize int `yaml:"buffer_size"`

	// DropIfFull drops notifications instead of blocking the request
	// path when the queue is full.
	DropIfFull bool `yaml:"drop_if_full"`

	SessionExpired string `yaml:"session_expired"`
	Forbidden      string `yaml:"forbidden"`
	ServerError    string `yaml:"server_error"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Backend:   BackendFile,
			Key:       "auth-storage",
			Directory: filepath.Join(homeDir, ".config", "gwdash"),
			RedisURL:  "redis://localhost:6379/0",
		},
		Navigation: NavigationConfig{
			EntryRoute: "/login",
		},
		Notifications: NotificationsConfig{
			BufferSize:     16,
			DropIfFull:     true,
			SessionExpired: "Session expired. Please log in again.",
			Forbidden:      "You do not have permission to perform this action.",
			ServerError:    "Server error. Please try again later.",
		},
	}
}

// Load loads configuration from the file named by GWDASH_CONFIG, or
// returns the defaults (with environment overrides) when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv("GWDASH_CONFIG")
	if configPath == "" {
		cfg := Default()
		cfg.applyEnvironmentVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.applyEnvironmentVariables()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			verify := true
			overrides = &ConfigOverrides{
				Session: &SessionOverrides{VerifyOnStart: &verify},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.API != nil {
		if overrides.API.BaseURL != "" {
			c.API.BaseURL = overrides.API.BaseURL
		}
		if overrides.API.Timeout != 0 {
			c.API.Timeout = overrides.API.Timeout
		}
	}

	if overrides.Session != nil {
		if overrides.Session.Backend != "" {
			c.Session.Backend = overrides.Session.Backend
		}
		if overrides.Session.RedisURL != "" {
			c.Session.RedisURL = overrides.Session.RedisURL
		}
		if overrides.Session.IdentityFile != "" {
			c.Session.IdentityFile = overrides.Session.IdentityFile
		}
		if overrides.Session.VerifyOnStart != nil {
			c.Session.VerifyOnStart = *overrides.Session.VerifyOnStart
		}
	}
}

// applyEnvironmentVariables applies the GWDASH_API_URL override, the
// one setting operators routinely change per shell.
func (c *Config) applyEnvironmentVariables() {
	if baseURL := os.Getenv("GWDASH_API_URL"); baseURL != "" {
		c.API.BaseURL = baseURL
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Session.Directory = expandVars(c.Session.Directory, vars)
	c.Session.IdentityFile = expandVars(c.Session.IdentityFile, vars)
	c.Session.RedisURL = expandVars(c.Session.RedisURL, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking vars
// before the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if parsed, err := url.Parse(c.API.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("api.base_url scheme must be http or https, got %q", parsed.Scheme))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive"))
	}

	backends := []string{BackendFile, BackendMemory, BackendRedis}
	if !slices.Contains(backends, c.Session.Backend) {
		errs = append(errs, fmt.Errorf("session.backend must be one of: %v", backends))
	}
	if c.Session.Key == "" {
		errs = append(errs, fmt.Errorf("session.key is required"))
	}
	if c.Session.Backend == BackendFile && c.Session.Directory == "" {
		errs = append(errs, fmt.Errorf("session.directory is required for the file backend"))
	}
	if c.Session.Backend == BackendRedis && c.Session.RedisURL == "" {
		errs = append(errs, fmt.Errorf("session.redis_url is required for the redis backend"))
	}

	if !strings.HasPrefix(c.Navigation.EntryRoute, "/") {
		errs = append(errs, fmt.Errorf("navigation.entry_route must start with /, got %q", c.Navigation.EntryRoute))
	}

	if c.Notifications.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("notifications.buffer_size must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
