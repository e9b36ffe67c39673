package config

import "time"

// Config is the root configuration shared by the dashboard, ingest and cleanup commands.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Database   DatabaseConfig   `yaml:"database"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Relay      RelayConfig      `yaml:"relay"`
	Kalshi     KalshiConfig     `yaml:"kalshi"`
	Polymarket PolymarketConfig `yaml:"polymarket"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
	Log        LogConfig        `yaml:"log"`
}

// Backend drivers.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

// BackendConfig selects and configures the hosted table store.
type BackendConfig struct {
	Driver     string        `yaml:"driver"`      // "rest" (PostgREST) or "postgres" (direct pgx)
	RestURL    string        `yaml:"rest_url"`    // project URL, e.g. https://xyz.supabase.co
	APIKey     string        `yaml:"api_key"`     // anon key, read access
	ServiceKey string        `yaml:"service_key"` // service-role key, needed for writes and deletes
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// WriteKey returns the key used for mutating requests.
func (b BackendConfig) WriteKey() string {
	if b.ServiceKey != "" {
		return b.ServiceKey
	}
	return b.APIKey
}

// DatabaseConfig holds the direct Postgres connection used by the postgres driver.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// DashboardConfig holds the dashboard server and render-cycle settings.
type DashboardConfig struct {
	Port          int           `yaml:"port"`
	SnapshotLimit int           `yaml:"snapshot_limit"` // rows requested from latest_snapshots
	DisplayLimit  int           `yaml:"display_limit"`  // rows shown after sorting, 0 = all
	ChangeMode    string        `yaml:"change_mode"`    // "points" or "relative"
	DefaultSort   string        `yaml:"default_sort"`
	DefaultDir    string        `yaml:"default_dir"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	PushInterval  time.Duration `yaml:"push_interval"`
	EnableRelay   bool          `yaml:"enable_relay"` // mount /kalshi on the dashboard server
}

// RelayConfig holds the Kalshi relay settings.
type RelayConfig struct {
	Port        int           `yaml:"port"`
	UpstreamURL string        `yaml:"upstream_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
}

// KalshiConfig holds Kalshi API settings for ingest and the ticker tap.
type KalshiConfig struct {
	RestURL        string        `yaml:"rest_url"`
	WSURL          string        `yaml:"ws_url"`
	APIKey         string        `yaml:"api_key"`          // API key ID (for KALSHI-ACCESS-KEY header)
	PrivateKeyPath string        `yaml:"private_key_path"` // Path to RSA private key PEM file
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
}

// PolymarketConfig holds Gamma and CLOB API settings.
type PolymarketConfig struct {
	GammaURL          string        `yaml:"gamma_url"`
	CLOBURL           string        `yaml:"clob_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	PageSize          int           `yaml:"page_size"`
	MaxPages          int           `yaml:"max_pages"`
	TopN              int           `yaml:"top_n"`
	Concurrency       int           `yaml:"concurrency"`
	RateLimitWait     time.Duration `yaml:"rate_limit_wait"`
	Timeout           time.Duration `yaml:"timeout"`
}

// IngestConfig holds the polling scheduler settings.
type IngestConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	ChunkSize   int           `yaml:"chunk_size"`
	Sources     []string      `yaml:"sources"`
}

// CleanupConfig holds retention settings.
type CleanupConfig struct {
	SnapshotRetention  time.Duration `yaml:"snapshot_retention"`
	LowVolumeThreshold float64       `yaml:"low_volume_threshold"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
