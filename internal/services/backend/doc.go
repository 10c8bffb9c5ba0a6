// Package backend calls the authoritative recording backend that tracks
// per-user recording state and plan tiers.
package backend
