package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "costmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// -------------------- Loading Tests --------------------

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost", cfg.Server.Host)
	assert.Equal(t, 8001, cfg.Server.BasePort)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, 200*time.Millisecond, cfg.Run.PollInitial)
	assert.Equal(t, 2*time.Second, cfg.Run.PollMax)
	assert.Equal(t, 50, cfg.Run.MaxPolls)
	assert.Equal(t, 2*time.Minute, cfg.Run.RunTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Routing.DelegationTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Routing.Agents)
}

func TestLoadFrom_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  base_port: 9001
model:
  provider: anthropic
  name: claude-sonnet-4-5
routing:
  agents:
    - http://agent-one:8001
    - http://agent-two:8002
run:
  max_polls: 10
logging:
  level: debug
  format: json
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.BasePort)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Model.Name)
	assert.Equal(t, []string{"http://agent-one:8001", "http://agent-two:8002"}, cfg.Routing.Agents)
	assert.Equal(t, 10, cfg.Run.MaxPolls)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Untouched sections keep their defaults.
	assert.Equal(t, "http://localhost", cfg.Server.Host)
	assert.Equal(t, 2*time.Second, cfg.Run.PollMax)
}

func TestLoadFrom_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: openai
server:
  base_port: 9001
`)
	t.Setenv("COSTMESH_MODEL_PROVIDER", "mock")
	t.Setenv("COSTMESH_BASE_PORT", "9100")
	t.Setenv("COSTMESH_RUN_TIMEOUT", "45s")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.Equal(t, 9100, cfg.Server.BasePort)
	assert.Equal(t, 45*time.Second, cfg.Run.RunTimeout)
}

func TestLoadFrom_MalformedEnvValuesIgnored(t *testing.T) {
	t.Setenv("COSTMESH_BASE_PORT", "not-a-number")
	t.Setenv("COSTMESH_POLL_MAX", "not-a-duration")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8001, cfg.Server.BasePort)
	assert.Equal(t, 2*time.Second, cfg.Run.PollMax)
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "server: [this is not a mapping")
	_, err := LoadFrom(path)
	assert.Error(t, err)
}

// -------------------- Validation Tests --------------------

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"bad port", func(cfg *Config) { cfg.Server.BasePort = 0 }},
		{"unknown provider", func(cfg *Config) { cfg.Model.Provider = "bard" }},
		{"zero max polls", func(cfg *Config) { cfg.Run.MaxPolls = 0 }},
		{"poll max below initial", func(cfg *Config) { cfg.Run.PollMax = cfg.Run.PollInitial / 2 }},
		{"zero run timeout", func(cfg *Config) { cfg.Run.RunTimeout = 0 }},
		{"zero delegation timeout", func(cfg *Config) { cfg.Routing.DelegationTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.Error(t, validate(&cfg))
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, validate(&cfg))
}
