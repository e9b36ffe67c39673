// Package api provides the Kalshi REST client used by the ingest jobs and
// the conversion of its responses into store records.
//
// REST endpoints:
//   - Production: https://api.elections.kalshi.com/trade-api/v2
//   - Legacy: https://trading-api.kalshi.com/trade-api/v2
//   - Demo: https://demo-api.kalshi.co/trade-api/v2
//
// Requests carry either a bearer API key or, when credentials are
// configured, RSA-PSS signed KALSHI-ACCESS-* headers.
package api
