// Package logs reads the daemon's log file for operator tooling: last-N
// tailing and offset-based forward reads with bounded memory usage.
package logs
