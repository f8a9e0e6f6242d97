// Package vault defines the vault client interface.
package vault

import (
	"context"
)

// Client wraps a Vault and memoizes resolved secrets.
type Client interface {
	// GetSecret retrieves a secret from the vault.
	// If useCache is true, a previously resolved value is returned.
	GetSecret(ctx context.Context, uri string, useCache bool) (string, error)

	// ResolveOptional returns the secret behind uri, or an empty string when
	// uri is empty or the secret does not exist.
	ResolveOptional(ctx context.Context, uri string) string

	// Ping checks if the vault connection is alive.
	Ping(ctx context.Context) error

	// Close closes the vault client connection.
	Close() error
}
