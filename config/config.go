// Package config defines the node's runtime configuration: identity,
// lifecycle timeouts, logging and the metrics server. Configuration loads
// from YAML with defaults and environment overrides, and validates before
// use.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runar-labs/runar-node/errors"
)

const envPrefix = "RUNAR"

// Duration wraps time.Duration so YAML accepts "5s" style strings
type Duration time.Duration

// UnmarshalYAML parses a duration from a "5s" style string or from integer
// nanoseconds, quoted or not
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case int:
		*d = Duration(time.Duration(v))
	case int64:
		*d = Duration(time.Duration(v))
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*d = Duration(time.Duration(n))
			return nil
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.WrapInvalid(err, "Duration", "UnmarshalYAML", "parsing "+v)
		}
		*d = Duration(parsed)
	default:
		return errors.WrapInvalid(
			fmt.Errorf("unsupported duration value %v", raw),
			"Duration", "UnmarshalYAML", "parsing")
	}
	return nil
}

// MarshalYAML renders the duration in its string form
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the plain time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// NodeConfig defines node identity and lifecycle timing
type NodeConfig struct {
	Name           string   `yaml:"name"`
	RequestTimeout Duration `yaml:"request_timeout"`
	StopTimeout    Duration `yaml:"stop_timeout"`
}

// LoggingConfig defines slog handler setup
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MetricsConfig defines the metrics HTTP server
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// Config represents the complete node configuration
type Config struct {
	Node    NodeConfig    `yaml:"node"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Default returns the configuration used when nothing is provided
func Default() *Config {
	return &Config{
		Node: NodeConfig{
			Name:           "runar-node",
			RequestTimeout: Duration(30 * time.Second),
			StopTimeout:    Duration(5 * time.Second),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Load reads a YAML file over the defaults and applies environment
// overrides. An empty path yields defaults plus environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapInvalid(
					fmt.Errorf("%w: %s", errors.ErrConfigNotFound, path),
					"Config", "Load", "reading file")
			}
			return nil, errors.WrapFatal(err, "Config", "Load", "reading "+path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WrapInvalid(err, "Config", "Load", "parsing "+path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies RUNAR_* environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(envPrefix + "_NODE_NAME"); val != "" {
		cfg.Node.Name = val
	}
	if val := os.Getenv(envPrefix + "_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv(envPrefix + "_LOG_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
	if val := os.Getenv(envPrefix + "_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if val := os.Getenv(envPrefix + "_METRICS_ENABLED"); val != "" {
		cfg.Metrics.Enabled = val == "true" || val == "1"
	}
}

// Validate checks if the config is valid, normalizing as it goes
func (c *Config) Validate() error {
	if c.Node.Name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("%w: node.name", errors.ErrMissingConfig),
			"Config", "Validate", "node identity")
	}

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: logging.level %q", errors.ErrInvalidConfig, c.Logging.Level),
			"Config", "Validate", "logging")
	}

	c.Logging.Format = strings.ToLower(c.Logging.Format)
	switch c.Logging.Format {
	case "text", "json":
	default:
		return errors.WrapInvalid(
			fmt.Errorf("%w: logging.format %q", errors.ErrInvalidConfig, c.Logging.Format),
			"Config", "Validate", "logging")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return errors.WrapInvalid(
				fmt.Errorf("%w: metrics.port %d", errors.ErrInvalidConfig, c.Metrics.Port),
				"Config", "Validate", "metrics")
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return errors.WrapInvalid(
				fmt.Errorf("%w: metrics.path %q", errors.ErrInvalidConfig, c.Metrics.Path),
				"Config", "Validate", "metrics")
		}
	}

	if c.Node.StopTimeout <= 0 {
		c.Node.StopTimeout = Default().Node.StopTimeout
	}
	if c.Node.RequestTimeout <= 0 {
		c.Node.RequestTimeout = Default().Node.RequestTimeout
	}
	return nil
}

// Clone returns a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return Default()
	}
	copied := *c
	return &copied
}

// String returns a YAML rendering of the config
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// SafeConfig provides thread-safe access to configuration
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = Default()
	}
	return &SafeConfig{config: cfg}
}

// Get returns a copy of the current configuration
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validation
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return errors.WrapInvalid(
			errors.New("config cannot be nil"), "SafeConfig", "Update", "validation")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}
