package world

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc_url", func(c *Config) { c.RPCURL = "" }},
		{"missing indexer_url", func(c *Config) { c.IndexerURL = "" }},
		{"missing world_address", func(c *Config) { c.WorldAddress = "" }},
		{"missing namespace", func(c *Config) { c.Namespace = "" }},
		{"placeholder world_address", func(c *Config) { c.WorldAddress = "0x0" }},
		{"placeholder rpc_url", func(c *Config) { c.RPCURL = "changeme" }},
		{"ellipsis indexer_url", func(c *Config) { c.IndexerURL = "..." }},
		{"zero attempts", func(c *Config) { c.MaxConnectAttempts = 0 }},
		{"zero retry interval", func(c *Config) { c.RetryInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, KindInvalidConfig, KindOf(err))
		})
	}
}

func TestConfig_ValidateAccepts(t *testing.T) {
	require.NoError(t, testConfig().Validate())
}

func TestConfig_Defaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.MaxConnectAttempts)
	assert.Equal(t, 5*time.Second, cfg.RetryInterval)
	assert.Equal(t, 64, cfg.SubscriptionBuffer)

	// Required endpoints stay empty: they must come from file or env.
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	doc := `
rpc_url: http://localhost:5050
indexer_url: http://localhost:8080
world_address: "0xWORLD"
namespace: di
retry_interval: 1s
max_connect_attempts: 5
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5050", cfg.RPCURL)
	assert.Equal(t, "di", cfg.Namespace)
	assert.Equal(t, time.Second, cfg.RetryInterval)
	assert.Equal(t, 5, cfg.MaxConnectAttempts)
	// Unset tuning fields keep defaults.
	assert.Equal(t, 64, cfg.SubscriptionBuffer)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	doc := `
rpc_url: http://localhost:5050
indexer_url: http://localhost:8080
world_address: "0xWORLD"
namespace: di
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	t.Setenv("WORLD_ADDRESS", "0xOVERRIDE")
	t.Setenv("WORLD_ENABLED", "false")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "0xOVERRIDE", cfg.WorldAddress)
	assert.False(t, cfg.Enabled)
}

func TestLoadConfig_EnvOnly(t *testing.T) {
	t.Setenv("WORLD_RPC_URL", "http://localhost:5050")
	t.Setenv("WORLD_INDEXER_URL", "http://localhost:8080")
	t.Setenv("WORLD_ADDRESS", "0xWORLD")
	t.Setenv("WORLD_NAMESPACE", "di")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, KindInvalidConfig, KindOf(err))
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rpc_url: [unterminated"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Equal(t, KindInvalidConfig, KindOf(err))
}
