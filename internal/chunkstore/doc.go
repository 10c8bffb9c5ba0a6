// Package chunkstore accumulates recording chunks on local disk. Writes
// for a filename are serialized through a single writer goroutine so the
// finalized file is always the in-order concatenation of appended chunks,
// and Flush gives callers a completion barrier before the file is read.
package chunkstore
