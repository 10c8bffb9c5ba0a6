// Package daemon wires the ingest server, spool storage, and run journal
// into a single managed lifecycle guarded by a file lock so only one
// instance serves a spool directory at a time.
package daemon
