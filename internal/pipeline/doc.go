// Package pipeline runs the ordered processing flows for finalized
// recordings: the upload run (notify backend, ship bytes to the object
// store, optionally transcribe, confirm, clean up) and the deletion run
// (remove the object, invalidate the edge cache). Stage ordering and the
// abort-versus-continue policy per stage are the package's contract.
package pipeline
