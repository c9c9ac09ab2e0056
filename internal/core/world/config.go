package world

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the world connection configuration. It is loaded once at
// process start and never mutated afterwards.
type Config struct {
	RPCURL          string `yaml:"rpc_url"`
	IndexerURL      string `yaml:"indexer_url"`
	WorldAddress    string `yaml:"world_address"`
	Namespace       string `yaml:"namespace"`
	DomainSeparator string `yaml:"domain_separator"`
	ManifestPath    string `yaml:"manifest_path"`
	Enabled         bool   `yaml:"enabled"`

	// RestrictedContext forces the sandboxed client strategy, for
	// processes that cannot hold a native indexer session.
	RestrictedContext bool `yaml:"restricted_context"`

	// Tuning
	MaxConnectAttempts int           `yaml:"max_connect_attempts"`
	RetryInterval      time.Duration `yaml:"retry_interval"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	SubscriptionBuffer int           `yaml:"subscription_buffer"`
}

// DefaultConfig returns the tuning defaults. Required endpoint fields
// have no defaults on purpose: an incomplete config must fail validation,
// never silently self-repair.
func DefaultConfig() Config {
	return Config{
		Enabled:            true,
		MaxConnectAttempts: 3,
		RetryInterval:      5 * time.Second,
		ConnectTimeout:     30 * time.Second,
		PollInterval:       2 * time.Second,
		SubscriptionBuffer: 64,
	}
}

// LoadConfig reads a YAML config file and applies environment overrides.
// The file may be absent if the environment carries the full config.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, WrapError(KindInvalidConfig, "read config file", err)
		}
		if err = yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, WrapError(KindInvalidConfig, "parse config file", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WORLD_RPC_URL"); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv("WORLD_INDEXER_URL"); v != "" {
		c.IndexerURL = v
	}
	if v := os.Getenv("WORLD_ADDRESS"); v != "" {
		c.WorldAddress = v
	}
	if v := os.Getenv("WORLD_NAMESPACE"); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv("WORLD_MANIFEST"); v != "" {
		c.ManifestPath = v
	}
	if v := os.Getenv("WORLD_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Enabled = b
		}
	}
}

// placeholder values left over from templated deployments count as
// missing.
var placeholders = map[string]bool{
	"":         true,
	"...":      true,
	"changeme": true,
	"0x0":      true,
}

// Validate checks config completeness. A failure here is fatal and never
// retried.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"rpc_url", c.RPCURL},
		{"indexer_url", c.IndexerURL},
		{"world_address", c.WorldAddress},
		{"namespace", c.Namespace},
	}
	for _, field := range required {
		if placeholders[field.value] {
			return NewError(KindInvalidConfig, "missing required config field %q", field.name)
		}
	}
	if c.MaxConnectAttempts < 1 {
		return NewError(KindInvalidConfig, "max_connect_attempts must be at least 1")
	}
	if c.RetryInterval <= 0 {
		return NewError(KindInvalidConfig, "retry_interval must be positive")
	}
	return nil
}
