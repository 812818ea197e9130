// Package config loads the system configuration using the hierarchy
// defaults < YAML < ENV. The YAML file is optional; everything has a
// working default so the demo estate runs with no configuration at all.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "costmesh.yaml"

// Config is the full system configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Routing RoutingConfig `yaml:"routing"`
	Model   ModelConfig   `yaml:"model"`
	Run     RunConfig     `yaml:"run"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds the listen addresses of the locally hosted agents.
type ServerConfig struct {
	// Host is the address the specialists advertise in their cards.
	Host string `yaml:"host"`

	// BasePort is the port of the first specialist; each subsequent
	// specialist listens one port higher.
	BasePort int `yaml:"base_port"`
}

// RoutingConfig configures the routing agent.
type RoutingConfig struct {
	// Agents lists the base URLs of the specialists to discover. Empty
	// means the locally hosted roster derived from ServerConfig.
	Agents []string `yaml:"agents"`

	// DelegationTimeout bounds how long one delegated sub-task may take.
	DelegationTimeout time.Duration `yaml:"delegation_timeout"`
}

// ModelConfig selects the chat model backing every agent.
type ModelConfig struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
}

// RunConfig bounds the run loop.
type RunConfig struct {
	PollInitial time.Duration `yaml:"poll_initial"`
	PollMax     time.Duration `yaml:"poll_max"`
	MaxPolls    int           `yaml:"max_polls"`
	RunTimeout  time.Duration `yaml:"run_timeout"`
}

// LoggingConfig configures the slog backend.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Defaults returns the configuration used when nothing is provided.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:     "http://localhost",
			BasePort: 8001,
		},
		Routing: RoutingConfig{
			DelegationTimeout: 2 * time.Minute,
		},
		Model: ModelConfig{
			Provider: "openai",
			Name:     "gpt-4o",
		},
		Run: RunConfig{
			PollInitial: 200 * time.Millisecond,
			PollMax:     2 * time.Second,
			MaxPolls:    50,
			RunTimeout:  2 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path. A missing file
// is not an error; the defaults plus environment apply.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg. Only non-empty values
// override.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Host, "COSTMESH_HOST")
	setInt(&cfg.Server.BasePort, "COSTMESH_BASE_PORT")
	setDuration(&cfg.Routing.DelegationTimeout, "COSTMESH_DELEGATION_TIMEOUT")
	setString(&cfg.Model.Provider, "COSTMESH_MODEL_PROVIDER")
	setString(&cfg.Model.Name, "COSTMESH_MODEL_NAME")
	setDuration(&cfg.Run.PollInitial, "COSTMESH_POLL_INITIAL")
	setDuration(&cfg.Run.PollMax, "COSTMESH_POLL_MAX")
	setInt(&cfg.Run.MaxPolls, "COSTMESH_MAX_POLLS")
	setDuration(&cfg.Run.RunTimeout, "COSTMESH_RUN_TIMEOUT")
	setString(&cfg.Logging.Level, "COSTMESH_LOG_LEVEL")
	setString(&cfg.Logging.Format, "COSTMESH_LOG_FORMAT")
}

func validate(cfg *Config) error {
	if cfg.Server.BasePort < 1 || cfg.Server.BasePort > 65535 {
		return errors.New("server.base_port must be a valid port")
	}
	switch cfg.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("model.provider must be openai, anthropic or mock, got %q", cfg.Model.Provider)
	}
	if cfg.Run.MaxPolls < 1 {
		return errors.New("run.max_polls must be >= 1")
	}
	if cfg.Run.PollInitial <= 0 || cfg.Run.PollMax < cfg.Run.PollInitial {
		return errors.New("run poll intervals must satisfy 0 < poll_initial <= poll_max")
	}
	if cfg.Run.RunTimeout <= 0 {
		return errors.New("run.run_timeout must be > 0")
	}
	if cfg.Routing.DelegationTimeout <= 0 {
		return errors.New("routing.delegation_timeout must be > 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
