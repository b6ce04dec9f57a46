package backend

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no record is stored for an id
var ErrNotFound = errors.New("session record not found")

// Backend persists one serialized record per session id
type Backend interface {
	// Load returns the stored bytes for id, or ErrNotFound
	Load(ctx context.Context, id string) ([]byte, error)

	// Save replaces the stored bytes for id
	Save(ctx context.Context, id string, data []byte) error

	// Delete removes the record for id. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// Exists checks if a record is stored for id
	Exists(ctx context.Context, id string) (bool, error)

	// List returns the ids of all stored records
	List(ctx context.Context) ([]string, error)

	// Stats returns backend statistics
	Stats(ctx context.Context) (*Stats, error)

	// Close releases backend resources
	Close() error
}

// Stats holds backend statistics
type Stats struct {
	ActiveSessions int64  `json:"active_sessions"`
	TotalSaved     int64  `json:"total_saved"`
	TotalDeleted   int64  `json:"total_deleted"`
	Store          string `json:"store"`
	Info           string `json:"info,omitempty"`
}
