// Package server accepts client recording connections and routes their
// events. The wire protocol is newline-delimited JSON: clients stream
// video-chunks events, signal process-video when a recording ends, and
// request delete-video; the only event the server emits back is the
// video-deleted acknowledgment. Each connection owns one session state
// machine and dispatched upload runs outlive the connection.
package server
