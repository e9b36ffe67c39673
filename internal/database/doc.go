// Package database provides a direct Postgres implementation of the store
// interfaces, for deployments that reach the backend's database instead of
// its REST API.
//
// Tables:
//   - events, markets: relational metadata, upserted by ingest
//   - market_snapshots, market_prices, market_outcomes: append-only samples
//   - latest_snapshots: view with the newest snapshot per market
package database
