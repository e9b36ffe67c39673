// Package polymarket reads market metadata from the Gamma API and current
// prices from the CLOB API, and converts them into store records.
//
// Gamma lists markets page by page (limit/offset). CLOB prices are looked
// up one market at a time, so every request passes through a shared token
// bucket.
package polymarket
