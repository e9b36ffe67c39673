// Package dashboard runs the render cycle and serves it over HTTP.
//
// One cycle fetches the latest snapshots, drops rows without volume,
// deduplicates by market, looks up the 24-hour and 7-day reference prices,
// enriches, filters, sorts, limits and groups. The enriched row set is cached
// for a short TTL; sorting and filtering are applied per request.
//
// Routes:
//   - GET /                  HTML table
//   - GET /api/markets       grouped rows as JSON
//   - GET /api/history/{id}  Chart.js config for one market
//   - GET /api/movers        top movers by absolute 24-hour change
//   - GET /ws                live refresh notifications
//   - GET /health            liveness
package dashboard
