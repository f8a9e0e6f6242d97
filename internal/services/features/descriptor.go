// Package features holds the registry of bot capabilities and their
// activation groups.
package features

import (
	"context"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// Tier is the visibility tier of a feature in the help text.
type Tier int

const (
	// TierBasic features are always listed.
	TierBasic Tier = iota
	// TierAdvanced features are listed only in verbose help.
	TierAdvanced
)

// Match is how a feature selects the events it handles.
type Match int

const (
	// MatchCommand handles prefixed commands whose token is one of the triggers.
	MatchCommand Match = iota
	// MatchFreeText handles text that does not start with the command prefix.
	MatchFreeText
	// MatchUnknownCommand handles prefixed commands no active feature knows.
	MatchUnknownCommand
	// MatchMembership handles membership transitions.
	MatchMembership
)

// Request is the input handed to a feature handler once the gate let the
// event through.
type Request struct {
	Room  models.Room
	Event *models.Event
	// Command is the parsed command token without prefix, empty for free text.
	Command string
	// Args are the whitespace-separated words after the command token.
	Args    []string
	Session *models.UserSession
}

// Handler runs a feature. Returned errors are logged by the router and turn
// into a failure notice for the user.
type Handler func(ctx context.Context, req *Request) error

// Descriptor describes a capability. It is immutable once registered.
type Descriptor struct {
	Name  string
	Group string
	Kind  models.EventKind
	Match Match
	// Triggers are the command keyword and its aliases, without prefix.
	Triggers []string
	// Help is the help line; empty means the feature is not listed.
	Help string
	Tier Tier
	// Visible hides the help line for a session when it returns false.
	Visible func(session *models.UserSession) bool
	// DirectOnly restricts the feature to two-party rooms.
	DirectOnly bool
	// InviteOnly restricts a membership feature to invites.
	InviteOnly bool
	// NeedsAccess runs the access gate before the handler.
	NeedsAccess bool
	Handler     Handler
}

// HasTrigger reports whether token is one of the descriptor triggers.
func (d Descriptor) HasTrigger(token string) bool {
	for _, trigger := range d.Triggers {
		if trigger == token {
			return true
		}
	}
	return false
}

func (d Descriptor) visibleFor(session *models.UserSession, verbose bool) bool {
	if d.Help == "" {
		return false
	}
	if d.Tier == TierAdvanced && !verbose {
		return false
	}
	if d.Visible != nil && session != nil && !d.Visible(session) {
		return false
	}
	return true
}
