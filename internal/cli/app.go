package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/config"
	"github.com/unifiedui/assistant-bot/internal/core/cache"
	"github.com/unifiedui/assistant-bot/internal/core/docdb"
	"github.com/unifiedui/assistant-bot/internal/core/vault"
	"github.com/unifiedui/assistant-bot/internal/infrastructure/albert"
	rediscache "github.com/unifiedui/assistant-bot/internal/infrastructure/cache/redis"
	"github.com/unifiedui/assistant-bot/internal/infrastructure/docdb/mongodb"
	"github.com/unifiedui/assistant-bot/internal/infrastructure/matrix"
	dotenvvault "github.com/unifiedui/assistant-bot/internal/infrastructure/vault/dotenv"
	"github.com/unifiedui/assistant-bot/internal/pkg/encryption"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
	"github.com/unifiedui/assistant-bot/internal/services/access"
)

// loadConfig reads the environment and configures the global logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Bot.Version == "dev" {
		cfg.Bot.Version = version
	}
	return cfg, logger.Setup(cfg.Log), nil
}

// createVaultClient creates a vault client based on the configuration.
func createVaultClient(cfg config.VaultConfig) (vault.Client, error) {
	switch vault.Type(cfg.Type) {
	case vault.TypeDotEnv:
		return dotenvvault.NewClient()
	default:
		return nil, fmt.Errorf("unsupported vault type: %s", cfg.Type)
	}
}

// createCacheClient creates a cache client based on the configuration.
// A nil client without error means sessions are not persisted.
func createCacheClient(cfg config.CacheConfig) (cache.Client, error) {
	switch cache.Type(cfg.Type) {
	case cache.TypeRedis:
		return rediscache.NewClient(rediscache.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Password:   cfg.Password,
			DB:         cfg.DB,
			DefaultTTL: cfg.TTL,
		})
	case cache.TypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// createDocDBClient creates a document database client based on the configuration.
func createDocDBClient(ctx context.Context, cfg config.DocDBConfig) (docdb.Client, error) {
	// Both supported types speak the MongoDB protocol.
	if _, err := docdb.ParseType(cfg.Type); err != nil {
		return nil, err
	}
	return mongodb.NewClient(ctx, &mongodb.ClientConfig{
		URI:          cfg.URI,
		DatabaseName: cfg.Database,
	})
}

// createEncryptor creates the session snapshot encryptor. Without a key
// snapshots are stored in clear.
func createEncryptor(ctx context.Context, cfg config.VaultConfig, vaultClient vault.Client, log zerolog.Logger) (encryption.Encryptor, error) {
	key := vaultClient.ResolveOptional(ctx, cfg.EncryptionKeyURI)
	if key == "" {
		log.Warn().Msg("SECRETS_ENCRYPTION_KEY not set, using NoOp encryptor")
	}
	return encryption.New(key)
}

// createMatrixClient creates the chat client and logs in.
func createMatrixClient(ctx context.Context, cfg config.MatrixConfig, vaultClient vault.Client) (*matrix.Client, error) {
	password, err := vaultClient.GetSecret(ctx, cfg.PasswordURI, true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve matrix password: %w", err)
	}

	client, err := matrix.NewClient(matrix.Config{
		HomeServer:  cfg.HomeServer,
		Username:    cfg.Username,
		Password:    password,
		DeviceName:  cfg.DeviceName,
		SyncTimeout: cfg.SyncTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// createAlbertClient creates the answer service client.
func createAlbertClient(ctx context.Context, cfg config.AlbertConfig, vaultClient vault.Client) (*albert.Client, error) {
	return albert.NewClient(&albert.ClientConfig{
		BaseURL:  cfg.APIURL,
		APIToken: vaultClient.ResolveOptional(ctx, cfg.APITokenURI),
		Timeout:  cfg.Timeout,
	})
}

// createAccessGate creates the allow-list gate over store, which may be nil
// when the gate is disabled.
func createAccessGate(cfg config.AllowListConfig, store docdb.UsersCollection) (*access.Gate, error) {
	return access.NewGate(store, access.Config{
		Enabled:        cfg.Enabled,
		TTL:            cfg.TTL,
		AllowedDomains: cfg.AllowedDomains,
		DomainPattern:  cfg.DomainPattern,
	})
}
