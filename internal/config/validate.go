package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case DriverREST:
		if c.Backend.RestURL == "" {
			return errors.New("backend.rest_url is required")
		}
		if c.Backend.APIKey == "" {
			return errors.New("backend.api_key is required")
		}
	case DriverPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("backend.driver must be %q or %q, got %q", DriverREST, DriverPostgres, c.Backend.Driver)
	}
	if c.Backend.MaxRetries < 0 {
		return errors.New("backend.max_retries must be >= 0")
	}

	if err := validatePort("dashboard.port", c.Dashboard.Port); err != nil {
		return err
	}
	if c.Dashboard.SnapshotLimit < 1 {
		return errors.New("dashboard.snapshot_limit must be >= 1")
	}
	if c.Dashboard.DisplayLimit < 0 {
		return errors.New("dashboard.display_limit must be >= 0")
	}
	if c.Dashboard.ChangeMode != "points" && c.Dashboard.ChangeMode != "relative" {
		return fmt.Errorf("dashboard.change_mode must be \"points\" or \"relative\", got %q", c.Dashboard.ChangeMode)
	}
	if c.Dashboard.DefaultDir != "asc" && c.Dashboard.DefaultDir != "desc" {
		return fmt.Errorf("dashboard.default_dir must be \"asc\" or \"desc\", got %q", c.Dashboard.DefaultDir)
	}

	if err := validatePort("relay.port", c.Relay.Port); err != nil {
		return err
	}

	if c.Polymarket.RequestsPerSecond <= 0 {
		return errors.New("polymarket.requests_per_second must be > 0")
	}
	if c.Polymarket.Concurrency < 1 {
		return errors.New("polymarket.concurrency must be >= 1")
	}

	if c.Ingest.Concurrency < 1 {
		return errors.New("ingest.concurrency must be >= 1")
	}
	if c.Ingest.ChunkSize < 1 {
		return errors.New("ingest.chunk_size must be >= 1")
	}
	for _, s := range c.Ingest.Sources {
		if s != "kalshi" && s != "polymarket" {
			return fmt.Errorf("ingest.sources: unknown source %q", s)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}

	return nil
}

func validatePort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", field, port)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
