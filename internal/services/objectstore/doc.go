// Package objectstore uploads and deletes finished recordings in the S3
// bucket that serves playback.
package objectstore
