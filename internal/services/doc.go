// Package services defines the shared error taxonomy and context
// annotations used by collaborator clients and pipeline stages.
package services
