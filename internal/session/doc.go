// Package session models the per-connection recording lifecycle as an
// explicit state machine so illegal signals, such as deleting a video while
// an upload run is in flight, are rejected instead of racing.
package session
