// Package access implements the allow-list access gate.
package access

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/core/docdb"
	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
)

// DefaultTTL is the allow-list refresh interval.
const DefaultTTL = time.Hour

// User-facing denial messages.
const (
	ReasonNotAllowed = "Albert est en phase de test et votre compte n'est pas encore autorisé à l'utiliser. " +
		"Votre demande a été transmise à l'équipe, vous serez prévenu dès que votre accès sera ouvert."
	ReasonDomainNotAllowed = "Albert n'est pas encore disponible pour votre administration."
)

// Config holds the access gate settings.
type Config struct {
	// Enabled turns the gate off when false: every sender is allowed.
	Enabled bool
	TTL     time.Duration
	// AllowedDomains is either ["*"] or an explicit list of domains.
	AllowedDomains []string
	// DomainPattern is a regular expression whose first group is the domain.
	DomainPattern string
}

// Decision is the result of an authorization lookup.
type Decision struct {
	Allowed bool
	// Reason is the user-facing explanation when Allowed is false.
	Reason string
}

// Stats describes the cached snapshot.
type Stats struct {
	Enabled     bool      `json:"enabled"`
	Allowed     int       `json:"allowed"`
	NotAllowed  int       `json:"notAllowed"`
	RefreshedAt time.Time `json:"refreshedAt"`
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// Gate caches the allow-list and answers authorization questions. The
// snapshot is replaced wholesale on refresh; concurrent refreshes within the
// same window may both reach the store.
type Gate struct {
	store    docdb.UsersCollection
	enabled  bool
	ttl      time.Duration
	allowAll bool
	domains  map[string]bool
	pattern  *regexp.Regexp
	now      func() time.Time
	log      zerolog.Logger

	mu          sync.RWMutex
	allowed     map[string]*models.AllowListEntry
	notAllowed  map[string]*models.AllowListEntry
	refreshedAt time.Time
}

// NewGate creates an access gate over store.
func NewGate(store docdb.UsersCollection, cfg Config, opts ...Option) (*Gate, error) {
	if store == nil && cfg.Enabled {
		return nil, fmt.Errorf("allow-list store is required")
	}

	pattern, err := regexp.Compile(cfg.DomainPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid domain pattern: %w", err)
	}
	if pattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("domain pattern must have a capture group")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	g := &Gate{
		store:      store,
		enabled:    cfg.Enabled,
		ttl:        ttl,
		domains:    make(map[string]bool),
		pattern:    pattern,
		now:        time.Now,
		log:        logger.Component("access"),
		allowed:    make(map[string]*models.AllowListEntry),
		notAllowed: make(map[string]*models.AllowListEntry),
	}
	for _, domain := range cfg.AllowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "*" {
			g.allowAll = true
		} else if domain != "" {
			g.domains[domain] = true
		}
	}
	if len(g.domains) == 0 {
		g.allowAll = true
	}

	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Refresh reloads the allow-list when the snapshot is older than the TTL.
func (g *Gate) Refresh(ctx context.Context) error {
	if !g.enabled {
		return nil
	}

	g.mu.RLock()
	fresh := !g.refreshedAt.IsZero() && g.now().Sub(g.refreshedAt) < g.ttl
	g.mu.RUnlock()
	if fresh {
		return nil
	}

	return g.reload(ctx)
}

// ForceRefresh reloads the allow-list regardless of the TTL.
func (g *Gate) ForceRefresh(ctx context.Context) error {
	if !g.enabled {
		return nil
	}
	return g.reload(ctx)
}

func (g *Gate) reload(ctx context.Context) error {
	records, err := g.store.FetchRecords(ctx, nil)
	if err != nil {
		return domainerrors.NewUpstreamError("allow-list", err.Error(), err)
	}

	allowed := make(map[string]*models.AllowListEntry)
	notAllowed := make(map[string]*models.AllowListEntry)
	for _, record := range records {
		if record.Status == models.StatusAllowed {
			allowed[record.User] = record
		} else {
			notAllowed[record.User] = record
		}
	}

	g.mu.Lock()
	g.allowed = allowed
	g.notAllowed = notAllowed
	g.refreshedAt = g.now()
	g.mu.Unlock()

	g.log.Info().Int("allowed", len(allowed)).Int("not_allowed", len(notAllowed)).Msg("Allow-list refreshed")
	return nil
}

// IsAllowed reports whether sender may use the bot. With refresh set, the
// snapshot is reloaded first when expired; a failed reload falls back to the
// stale snapshot if one was ever loaded.
func (g *Gate) IsAllowed(ctx context.Context, sender string, refresh bool) (Decision, error) {
	if !g.enabled {
		return Decision{Allowed: true}, nil
	}

	if refresh {
		if err := g.Refresh(ctx); err != nil {
			if !g.loaded() {
				return Decision{}, err
			}
			g.log.Warn().Err(err).Msg("Allow-list refresh failed, using stale snapshot")
		}
	}

	g.mu.RLock()
	_, ok := g.allowed[sender]
	g.mu.RUnlock()
	if !ok {
		return Decision{Reason: ReasonNotAllowed}, nil
	}

	if !g.domainAllowed(sender) {
		return Decision{Reason: ReasonDomainNotAllowed}, nil
	}
	return Decision{Allowed: true}, nil
}

// Authorize adapts IsAllowed to the event gate.
func (g *Gate) Authorize(ctx context.Context, sender string) (bool, string, error) {
	decision, err := g.IsAllowed(ctx, sender, true)
	if err != nil {
		return false, "", err
	}
	return decision.Allowed, decision.Reason, nil
}

// RegisterPending records sender as pending when the allow-list does not
// know it. It returns true when a record was written, so that operators are
// notified once per sender.
func (g *Gate) RegisterPending(ctx context.Context, sender string) (bool, error) {
	if !g.enabled {
		return false, nil
	}

	g.mu.RLock()
	_, isAllowed := g.allowed[sender]
	_, isKnown := g.notAllowed[sender]
	g.mu.RUnlock()
	if isAllowed || isKnown {
		return false, nil
	}

	domain, err := g.ExtractDomain(sender)
	if err != nil {
		g.log.Warn().Err(err).Str("sender", sender).Msg("Could not extract domain")
	}

	record := &models.AllowListEntry{
		User:   sender,
		Status: models.StatusPending,
		Domain: domain,
	}
	if err := g.store.InsertRecords(ctx, []*models.AllowListEntry{record}); err != nil {
		return false, domainerrors.NewUpstreamError("allow-list", err.Error(), err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.notAllowed[sender]; exists {
		return false, nil
	}
	g.notAllowed[sender] = record

	g.log.Info().Str("sender", sender).Str("domain", domain).Msg("Registered pending user")
	return true, nil
}

// RecordUsage increments the question counter of an allowed sender and
// stamps its last activity.
func (g *Gate) RecordUsage(ctx context.Context, sender string) error {
	if !g.enabled {
		return nil
	}

	g.mu.RLock()
	current, ok := g.allowed[sender]
	g.mu.RUnlock()
	if !ok {
		return domainerrors.NewNotFoundError("allow-list user", sender)
	}

	now := g.now().UTC()
	updated := *current
	updated.QuestionCount++
	updated.LastActivity = &now

	if err := g.store.UpdateRecords(ctx, []*models.AllowListEntry{&updated}); err != nil {
		return domainerrors.NewUpstreamError("allow-list", err.Error(), err)
	}

	g.mu.Lock()
	g.allowed[sender] = &updated
	g.mu.Unlock()
	return nil
}

// ExtractDomain returns the lower-cased domain encoded in a sender identity.
func (g *Gate) ExtractDomain(sender string) (string, error) {
	match := g.pattern.FindStringSubmatch(sender)
	if len(match) < 2 || match[1] == "" {
		return "", domainerrors.NewMalformedReferenceError("sender", sender)
	}
	return strings.ToLower(match[1]), nil
}

// Lookup returns the cached record of sender.
func (g *Gate) Lookup(sender string) (models.AllowListEntry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if record, ok := g.allowed[sender]; ok {
		return *record, true
	}
	if record, ok := g.notAllowed[sender]; ok {
		return *record, true
	}
	return models.AllowListEntry{}, false
}

// Stats describes the current snapshot.
func (g *Gate) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return Stats{
		Enabled:     g.enabled,
		Allowed:     len(g.allowed),
		NotAllowed:  len(g.notAllowed),
		RefreshedAt: g.refreshedAt,
	}
}

func (g *Gate) loaded() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.refreshedAt.IsZero()
}

func (g *Gate) domainAllowed(sender string) bool {
	if g.allowAll {
		return true
	}

	domain, err := g.ExtractDomain(sender)
	if err != nil {
		g.log.Warn().Err(err).Str("sender", sender).Msg("Could not extract domain, denying")
		return false
	}
	return g.domains[domain]
}
