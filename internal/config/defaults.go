package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDriver             = DriverREST
	DefaultBackendTimeout     = 30 * time.Second
	DefaultMaxRetries         = 3
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultDashboardPort      = 8080
	DefaultSnapshotLimit      = 1000
	DefaultDisplayLimit       = 100
	DefaultChangeMode         = "points"
	DefaultSort               = "volume"
	DefaultDir                = "desc"
	DefaultCacheTTL           = 30 * time.Second
	DefaultPushInterval       = 30 * time.Second
	DefaultRelayPort          = 3000
	DefaultRelayUpstream      = "https://trading-api.kalshi.com/trade-api/v2/markets/"
	DefaultRelayTimeout       = 15 * time.Second
	DefaultKalshiRestURL      = "https://api.elections.kalshi.com/trade-api/v2"
	DefaultKalshiWSURL        = "wss://api.elections.kalshi.com/trade-api/ws/v2"
	DefaultGammaURL           = "https://gamma-api.polymarket.com"
	DefaultCLOBURL            = "https://clob.polymarket.com"
	DefaultRequestsPerSecond  = 5.0
	DefaultPageSize           = 1000
	DefaultMaxPages           = 30
	DefaultTopN               = 1000
	DefaultCLOBConcurrency    = 8
	DefaultRateLimitWait      = 10 * time.Second
	DefaultIngestInterval     = 5 * time.Minute
	DefaultIngestConcurrency  = 2
	DefaultChunkSize          = 500
	DefaultSnapshotRetention  = 30 * 24 * time.Hour
	DefaultLowVolumeThreshold = 1000
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// DefaultSources lists the ingest jobs enabled when none are configured.
var DefaultSources = []string{"kalshi", "polymarket"}

func (c *Config) applyDefaults() {
	// Backend defaults
	if c.Backend.Driver == "" {
		c.Backend.Driver = DefaultDriver
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = DefaultBackendTimeout
	}
	if c.Backend.MaxRetries == 0 {
		c.Backend.MaxRetries = DefaultMaxRetries
	}

	applyDBDefaults(&c.Database.Postgres)

	// Dashboard defaults
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = DefaultDashboardPort
	}
	if c.Dashboard.SnapshotLimit == 0 {
		c.Dashboard.SnapshotLimit = DefaultSnapshotLimit
	}
	if c.Dashboard.DisplayLimit == 0 {
		c.Dashboard.DisplayLimit = DefaultDisplayLimit
	}
	if c.Dashboard.ChangeMode == "" {
		c.Dashboard.ChangeMode = DefaultChangeMode
	}
	if c.Dashboard.DefaultSort == "" {
		c.Dashboard.DefaultSort = DefaultSort
	}
	if c.Dashboard.DefaultDir == "" {
		c.Dashboard.DefaultDir = DefaultDir
	}
	if c.Dashboard.CacheTTL == 0 {
		c.Dashboard.CacheTTL = DefaultCacheTTL
	}
	if c.Dashboard.PushInterval == 0 {
		c.Dashboard.PushInterval = DefaultPushInterval
	}

	// Relay defaults
	if c.Relay.Port == 0 {
		c.Relay.Port = DefaultRelayPort
	}
	if c.Relay.UpstreamURL == "" {
		c.Relay.UpstreamURL = DefaultRelayUpstream
	}
	if c.Relay.Timeout == 0 {
		c.Relay.Timeout = DefaultRelayTimeout
	}

	// Kalshi defaults
	if c.Kalshi.RestURL == "" {
		c.Kalshi.RestURL = DefaultKalshiRestURL
	}
	if c.Kalshi.WSURL == "" {
		c.Kalshi.WSURL = DefaultKalshiWSURL
	}
	if c.Kalshi.Timeout == 0 {
		c.Kalshi.Timeout = DefaultBackendTimeout
	}
	if c.Kalshi.MaxRetries == 0 {
		c.Kalshi.MaxRetries = DefaultMaxRetries
	}

	// Polymarket defaults
	if c.Polymarket.GammaURL == "" {
		c.Polymarket.GammaURL = DefaultGammaURL
	}
	if c.Polymarket.CLOBURL == "" {
		c.Polymarket.CLOBURL = DefaultCLOBURL
	}
	if c.Polymarket.RequestsPerSecond == 0 {
		c.Polymarket.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Polymarket.PageSize == 0 {
		c.Polymarket.PageSize = DefaultPageSize
	}
	if c.Polymarket.MaxPages == 0 {
		c.Polymarket.MaxPages = DefaultMaxPages
	}
	if c.Polymarket.TopN == 0 {
		c.Polymarket.TopN = DefaultTopN
	}
	if c.Polymarket.Concurrency == 0 {
		c.Polymarket.Concurrency = DefaultCLOBConcurrency
	}
	if c.Polymarket.RateLimitWait == 0 {
		c.Polymarket.RateLimitWait = DefaultRateLimitWait
	}
	if c.Polymarket.Timeout == 0 {
		c.Polymarket.Timeout = DefaultBackendTimeout
	}

	// Ingest defaults
	if c.Ingest.Interval == 0 {
		c.Ingest.Interval = DefaultIngestInterval
	}
	if c.Ingest.Concurrency == 0 {
		c.Ingest.Concurrency = DefaultIngestConcurrency
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = DefaultChunkSize
	}
	if len(c.Ingest.Sources) == 0 {
		c.Ingest.Sources = append([]string(nil), DefaultSources...)
	}

	// Cleanup defaults
	if c.Cleanup.SnapshotRetention == 0 {
		c.Cleanup.SnapshotRetention = DefaultSnapshotRetention
	}
	if c.Cleanup.LowVolumeThreshold == 0 {
		c.Cleanup.LowVolumeThreshold = DefaultLowVolumeThreshold
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
