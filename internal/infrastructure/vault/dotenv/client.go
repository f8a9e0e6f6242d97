// Package dotenv provides the dotenv vault client implementation.
package dotenv

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/unifiedui/assistant-bot/internal/core/vault"
)

// Client memoizes the secrets resolved by a dotenv Vault.
type Client struct {
	vault    vault.Vault
	mu       sync.Mutex
	resolved map[string]string
}

var _ vault.Client = (*Client)(nil)

// NewClient creates a new DotEnv vault client.
func NewClient() (*Client, error) {
	return &Client{
		vault:    NewVault(),
		resolved: make(map[string]string),
	}, nil
}

// GetSecret retrieves a secret from the vault.
func (c *Client) GetSecret(ctx context.Context, uri string, useCache bool) (string, error) {
	if useCache {
		c.mu.Lock()
		value, ok := c.resolved[uri]
		c.mu.Unlock()
		if ok {
			return value, nil
		}
	}

	value, err := c.vault.GetSecret(ctx, uri)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.resolved[uri] = value
	c.mu.Unlock()
	return value, nil
}

// ResolveOptional returns the secret behind uri or an empty string.
func (c *Client) ResolveOptional(ctx context.Context, uri string) string {
	if uri == "" {
		return ""
	}
	value, err := c.GetSecret(ctx, uri, true)
	if err != nil {
		log.Debug().Str("uri", uri).Msg("optional secret not set")
		return ""
	}
	return value
}

// Ping checks if the vault connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	return c.vault.Ping(ctx)
}

// Close closes the vault client connection.
func (c *Client) Close() error {
	return c.vault.Close()
}
