// Package vault defines how secrets referenced by URI are resolved.
package vault

import (
	"context"
)

// Vault resolves a secret URI such as "dotenv://MATRIX_BOT_PASSWORD".
type Vault interface {
	GetSecret(ctx context.Context, uri string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}
