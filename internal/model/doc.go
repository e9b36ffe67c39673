// Package model defines shared data types used across the dashboard, ingest and cleanup.
//
// Read-side types mirror the columns of the latest_snapshots view and the
// market_snapshots table. Write-side types mirror the events, markets,
// market_snapshots, market_prices and market_outcomes tables.
//
// Conventions:
//   - Prices: probabilities in [0,1] as float64; nil when the backend has no value
//   - Volumes: contracts or USD as float64; nil when unknown
//   - Timestamps: UTC, JSON-encoded as RFC 3339
package model
