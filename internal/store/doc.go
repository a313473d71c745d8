// Package store provides SQLite-backed persistence for ledgerguard.
//
// It adapts the pipeline's collaborator interfaces onto one database:
//   - Invoices: whole-document get and replace by id (last writer wins)
//   - Settings: a single whole-object row
//   - Purchase orders and client profiles: the read-only registry
//   - Notifications: the in-app inbox
//   - Audit log: an append-only, hash-chained record of pipeline actions
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Listings are ordered by id (UUIDv7, creation order) or by the
// autoincrement seq column, never by wall-clock timestamps.
package store
