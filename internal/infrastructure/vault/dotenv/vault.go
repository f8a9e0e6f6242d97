// Package dotenv provides a vault backed by the process environment.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/unifiedui/assistant-bot/internal/core/vault"
)

// URIScheme prefixes the secret references resolved by this vault.
const URIScheme = "dotenv://"

// Vault resolves "dotenv://KEY" references from environment variables,
// which godotenv fills from .env at startup.
type Vault struct {
	lookup func(key string) (string, bool)
}

var _ vault.Vault = (*Vault)(nil)

// NewVault creates a vault reading the process environment.
func NewVault() *Vault {
	return NewVaultWithLookup(os.LookupEnv)
}

// NewVaultWithLookup creates a vault reading secrets through lookup.
func NewVaultWithLookup(lookup func(key string) (string, bool)) *Vault {
	return &Vault{lookup: lookup}
}

// GetSecret returns the value of the referenced variable. A URI without the
// dotenv scheme is returned as a literal value; an empty variable counts as
// missing.
func (v *Vault) GetSecret(_ context.Context, uri string) (string, error) {
	key, ok := strings.CutPrefix(uri, URIScheme)
	if !ok {
		if uri == "" {
			return "", fmt.Errorf("secret uri is empty")
		}
		return uri, nil
	}

	if value, found := v.lookup(key); found && value != "" {
		return value, nil
	}
	return "", fmt.Errorf("secret not found: %s", key)
}

// Ping always succeeds.
func (v *Vault) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (v *Vault) Close() error {
	return nil
}
