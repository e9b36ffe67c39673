// Package poller runs ingest jobs on a fixed interval.
//
// The poller:
//   - Runs every registered job immediately on start, then every interval
//   - Bounds how many jobs run at once
//   - Gives each run its own timeout
//   - Logs and counts failures without stopping
package poller
