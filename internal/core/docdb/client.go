// Package docdb defines the document database client interface.
package docdb

import (
	"context"
)

// Client defines the interface for a document database client.
type Client interface {
	// Users returns the allow-list collection.
	Users() UsersCollection

	// Ping verifies the database connection.
	Ping(ctx context.Context) error

	// EnsureIndexes creates the indexes needed by the collections.
	EnsureIndexes(ctx context.Context) error

	// Close closes the database connection.
	Close(ctx context.Context) error
}
