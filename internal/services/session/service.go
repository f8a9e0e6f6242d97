// Package session provides the per-sender session store with an encrypted
// cache snapshot.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/core/cache"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/pkg/encryption"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
)

// DefaultSnapshotTTL is the default TTL of a cached session snapshot.
const DefaultSnapshotTTL = 30 * 24 * time.Hour

// Service provides lazily created user sessions.
type Service interface {
	// Acquire returns the session of sender, creating it on first contact,
	// and locks it until release is called.
	Acquire(ctx context.Context, sender string) (session *models.UserSession, release func())

	// Save writes a snapshot of the session to the cache, when configured.
	Save(ctx context.Context, session *models.UserSession) error

	// Count returns the number of sessions held in memory.
	Count() int

	// BuildCacheKey generates the cache key for a sender.
	BuildCacheKey(sender string) string
}

// Config holds the configuration for the session service. CacheClient and
// Encryptor are optional; without them sessions live in memory only.
type Config struct {
	CacheClient cache.Client
	Encryptor   encryption.Encryptor
	TTL         time.Duration
	Defaults    models.SessionDefaults
}

type entry struct {
	mu      sync.Mutex
	session *models.UserSession
}

// service implements the Service interface.
type service struct {
	cacheClient cache.Client
	encryptor   encryption.Encryptor
	ttl         time.Duration
	defaults    models.SessionDefaults
	log         zerolog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewService creates a new session service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.CacheClient != nil && cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required when a cache client is set")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultSnapshotTTL
	}

	return &service{
		cacheClient: cfg.CacheClient,
		encryptor:   cfg.Encryptor,
		ttl:         ttl,
		defaults:    cfg.Defaults,
		log:         logger.Component("session"),
		entries:     make(map[string]*entry),
	}, nil
}

// Acquire returns the locked session of sender. Two events of the same
// sender are serialized; different senders proceed concurrently.
func (s *service) Acquire(ctx context.Context, sender string) (*models.UserSession, func()) {
	s.mu.Lock()
	e, ok := s.entries[sender]
	if !ok {
		e = &entry{}
		s.entries[sender] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	if e.session == nil {
		e.session = s.load(ctx, sender)
	}
	return e.session, e.mu.Unlock
}

// load restores a snapshot from the cache or creates a fresh session.
// Unreadable snapshots (e.g. after a key change) are dropped.
func (s *service) load(ctx context.Context, sender string) *models.UserSession {
	if s.cacheClient == nil {
		return models.NewUserSession(sender, s.defaults)
	}

	key := s.BuildCacheKey(sender)
	encrypted, err := s.cacheClient.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("sender", sender).Msg("Failed to read session snapshot")
		return models.NewUserSession(sender, s.defaults)
	}
	if encrypted == nil {
		return models.NewUserSession(sender, s.defaults)
	}

	decrypted, err := s.encryptor.Decrypt(string(encrypted))
	if err != nil {
		_, _ = s.cacheClient.Delete(ctx, key)
		return models.NewUserSession(sender, s.defaults)
	}

	var session models.UserSession
	if err := json.Unmarshal(decrypted, &session); err != nil || session.Sender != sender {
		_, _ = s.cacheClient.Delete(ctx, key)
		return models.NewUserSession(sender, s.defaults)
	}

	return &session
}

// Save stores a snapshot of the session in the cache.
func (s *service) Save(ctx context.Context, session *models.UserSession) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}

	session.UpdatedAt = time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = session.UpdatedAt
	}

	if s.cacheClient == nil {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	encrypted, err := s.encryptor.Encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt session: %w", err)
	}

	if err := s.cacheClient.Set(ctx, s.BuildCacheKey(session.Sender), []byte(encrypted), s.ttl); err != nil {
		return fmt.Errorf("failed to store session in cache: %w", err)
	}

	return nil
}

// Count returns the number of sessions held in memory.
func (s *service) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// BuildCacheKey generates the cache key for a sender.
func (s *service) BuildCacheKey(sender string) string {
	return "session:" + sender
}
