// Package database provides SQLite-based run history for scriptorium.
//
// Every finished run is stored with:
//   - a summary row (site, timing, counts, status)
//   - the full report as JSON
//   - one row per ledger entry, in ledger order
//
// The database lives under the XDG data directory and uses the CGO-free
// modernc.org/sqlite driver.
package database
