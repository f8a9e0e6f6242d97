package gate

import (
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

// KnownCommands is the part of the feature registry the gate consults.
type KnownCommands interface {
	IsKnownCommand(token string) bool
}

// ForDescriptor builds the chain guarding a feature. Structural checks run
// first; authorization runs last so that only the matching feature consults
// the access gate. auth may be nil to skip authorization.
func ForDescriptor(d features.Descriptor, known KnownCommands, auth Authorizer) Chain {
	chain := Chain{NotOwnMessage()}

	if d.DirectOnly {
		chain = append(chain, DirectOnly())
	}

	switch d.Match {
	case features.MatchMembership:
		if d.InviteOnly {
			chain = append(chain, InviteOnly())
		}
	case features.MatchCommand:
		chain = append(chain, TextOnly(), ParseCommand(), Triggers(d.Triggers))
	case features.MatchFreeText:
		chain = append(chain, TextOnly(), ParseCommand(), FreeText())
	case features.MatchUnknownCommand:
		chain = append(chain, TextOnly(), ParseCommand(), UnknownCommand(known.IsKnownCommand))
	}

	if d.NeedsAccess && auth != nil {
		chain = append(chain, Authorized(auth))
	}
	return chain
}
