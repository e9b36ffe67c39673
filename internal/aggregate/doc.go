// Package aggregate shapes enriched rows for display: volume filtering,
// deduplication by market, grouping by event, stable sorting and the
// source and category filters.
package aggregate
