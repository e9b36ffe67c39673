// Package render turns aggregated rows into the dashboard page and the
// Chart.js configuration for a market's price history.
//
// Display conventions:
//   - price: probability as a percentage with one decimal, "53.0%"
//   - change: two decimals with a direction arrow, "⬆️ 1.25%"
//   - volume: dollar sign with thousands grouping, "$12,345"
//   - missing values: an em dash
package render
