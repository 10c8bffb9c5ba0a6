// Package journal persists a history of pipeline runs in SQLite. It is an
// observability ledger only: pipeline control flow never reads it, and the
// ephemeral per-run job state stays in memory.
package journal
