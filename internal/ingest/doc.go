// Package ingest loads market data from the exchanges into the backend
// tables the dashboard reads.
//
// Each job fetches one exchange's current markets, converts them into a
// model.Batch and writes it with store.WriteBatch. Jobs are polled on an
// interval by the poller package; nothing here listens for pushed events.
package ingest
