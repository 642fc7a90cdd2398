// Package store keeps a SQLite ledger of TAP runs: one row per run and
// one row per reported line, so a run can be listed, inspected and
// replayed as TAP later.
//
// Results are keyed and ordered by their TAP ordinal within a run. Runs
// are listed newest first by start time, with the run ID breaking ties.
// Timestamps are stored as fixed-width UTC text so they sort as strings.
//
// The ledger runs in WAL mode with foreign keys enforced and a five second
// busy timeout. Schema changes are applied as numbered migrations tracked
// in user_version.
package store
