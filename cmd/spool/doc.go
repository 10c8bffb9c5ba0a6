// Package main hosts the spool CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into IPC
// calls against the daemon: liveness checks, status snapshots, run history,
// and configuration scaffolding. It centralizes configuration resolution and
// socket discovery so subcommands stay declarative; the heavy lifting lives
// in the internal packages.
package main
