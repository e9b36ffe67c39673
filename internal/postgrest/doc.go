// Package postgrest is a small client for the hosted backend's REST table API.
//
// Every request carries the project key twice, as the apikey header and as a
// bearer token. Filters use the backend's operator syntax:
//
//	market_id=in.("a","b")&timestamp=lt.2024-05-01T00:00:00Z&order=timestamp.desc
//
// Inserts are chunked, upserts use on_conflict with merge-duplicates, and
// deletes ask for the deleted rows back so the caller gets a count.
package postgrest
