package features

import (
	"sort"
	"strings"
	"sync"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// Registry holds the registered descriptors and the set of activated
// groups. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	byName map[string]Descriptor
	groups map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Descriptor),
		groups: make(map[string]bool),
	}
}

// Register adds or replaces a descriptor keyed by name. Replacing keeps the
// original registration position.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.byName[d.Name] = d
}

// ActivateGroup activates every descriptor of group and returns them in
// registration order. Activating a group twice is a no-op that returns the
// same list.
func (r *Registry) ActivateGroup(group string) []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups[group] = true
	return r.groupLocked(group)
}

// IsActive reports whether a group was activated.
func (r *Registry) IsActive(group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.groups[group]
}

// ActiveGroups returns the activated groups, sorted.
func (r *Registry) ActiveGroups() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	groups := make([]string, 0, len(r.groups))
	for group := range r.groups {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

// IsKnownCommand reports whether token triggers an active command.
func (r *Registry) IsKnownCommand(token string) bool {
	if token == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		d := r.byName[name]
		if r.groups[d.Group] && d.Match == MatchCommand && d.HasTrigger(token) {
			return true
		}
	}
	return false
}

// Active returns the active descriptors of an event kind in dispatch order:
// commands, then free text, then the unknown command catch-all, each in
// registration order.
func (r *Registry) Active(kind models.EventKind) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []Descriptor
	for _, name := range r.order {
		d := r.byName[name]
		if r.groups[d.Group] && d.Kind == kind {
			active = append(active, d)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Match < active[j].Match
	})
	return active
}

// All returns every registered descriptor in registration order.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.byName[name])
	}
	return all
}

// Lookup returns a descriptor by name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// HelpEntries returns the deduplicated, sorted help lines of the active
// features visible to session.
func (r *Registry) HelpEntries(session *models.UserSession, verbose bool) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var entries []string
	for _, name := range r.order {
		d := r.byName[name]
		if !r.groups[d.Group] || !d.visibleFor(session, verbose) || seen[d.Help] {
			continue
		}
		seen[d.Help] = true
		entries = append(entries, d.Help)
	}
	sort.Strings(entries)
	return entries
}

// HelpText formats the help entries as a markdown list.
func (r *Registry) HelpText(session *models.UserSession, verbose bool) string {
	entries := r.HelpEntries(session, verbose)
	if len(entries) == 0 {
		return ""
	}
	return "- " + strings.Join(entries, "\n- ")
}

func (r *Registry) groupLocked(group string) []Descriptor {
	var descriptors []Descriptor
	for _, name := range r.order {
		if d := r.byName[name]; d.Group == group {
			descriptors = append(descriptors, d)
		}
	}
	return descriptors
}
