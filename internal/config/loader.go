package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML after expanding ${VAR} references.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
// An empty path yields a config built from defaults and the environment alone.
func LoadWithDefaults(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = &Config{}
	} else if cfg, err = Load(path); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv fills unset credentials from the variables the web build already uses.
func (c *Config) applyEnv() {
	setIfEmpty(&c.Backend.RestURL, "SUPABASE_URL", "VITE_SUPABASE_URL")
	setIfEmpty(&c.Backend.APIKey, "SUPABASE_KEY", "VITE_SUPABASE_KEY")
	setIfEmpty(&c.Backend.ServiceKey, "SUPABASE_SERVICE_KEY")
	setIfEmpty(&c.Relay.APIKey, "KALSHI_API_KEY")
	setIfEmpty(&c.Kalshi.APIKey, "KALSHI_API_KEY_ID")
	setIfEmpty(&c.Kalshi.PrivateKeyPath, "KALSHI_PRIVATE_KEY_PATH")
	setIfEmpty(&c.Kalshi.WSURL, "KALSHI_WS_URL")
}

func setIfEmpty(dst *string, keys ...string) {
	if *dst != "" {
		return
	}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			*dst = v
			return
		}
	}
}
