// Package store provides the SQLite-backed idempotency journal.
//
// The journal maps (service, key) to the outputs of the first successful
// invocation recorded under that key. Entries are append-only: a second
// Record for an existing key is ignored, so concurrent duplicates resolve
// to whichever write reached the database first.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Outputs are stored as RFC 8785 canonical JSON. Values read back are
// JSON-normalized: integers decode as int64, other numbers as float64.
package store
