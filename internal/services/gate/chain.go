package gate

import (
	"context"
	"strings"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// Input is the event under evaluation. The command parse check fills Token,
// Args and IsCommand for the checks that follow it.
type Input struct {
	Room   models.Room
	Event  *models.Event
	Self   string
	Prefix string

	IsCommand bool
	Token     string
	Args      []string
}

// Check is one link of the chain.
type Check struct {
	Name string
	Fn   func(ctx context.Context, in *Input) Outcome
}

// Chain is an ordered list of checks evaluated with short-circuit.
type Chain []Check

// Evaluate runs the checks in order and returns the first outcome that is
// not Proceed. When every check passes it returns Proceed with the parsed
// command token and arguments.
func (c Chain) Evaluate(ctx context.Context, in *Input) Outcome {
	for _, check := range c {
		if outcome := check.Fn(ctx, in); !outcome.Passed() {
			return outcome
		}
	}
	return Proceed(in.Token, in.Args)
}

// NotOwnMessage skips events sent by the bot itself.
func NotOwnMessage() Check {
	return Check{Name: "not_own_message", Fn: func(_ context.Context, in *Input) Outcome {
		if in.Event.Sender == in.Self {
			return Skip()
		}
		return Proceed("", nil)
	}}
}

// DirectOnly skips events of multi-party rooms.
func DirectOnly() Check {
	return Check{Name: "direct_only", Fn: func(_ context.Context, in *Input) Outcome {
		if !in.Room.IsDirect() {
			return Skip()
		}
		return Proceed("", nil)
	}}
}

// InviteOnly skips membership events that are not an invite.
func InviteOnly() Check {
	return Check{Name: "invite_only", Fn: func(_ context.Context, in *Input) Outcome {
		if in.Event.Kind != models.KindMembership || in.Event.Membership != models.MembershipInvite {
			return Skip()
		}
		return Proceed("", nil)
	}}
}

// TextOnly skips events that are not text messages.
func TextOnly() Check {
	return Check{Name: "text_only", Fn: func(_ context.Context, in *Input) Outcome {
		if !in.Event.IsText() {
			return Skip()
		}
		return Proceed("", nil)
	}}
}

// ParseCommand extracts the command token when the body starts with the
// prefix. It never skips.
func ParseCommand() Check {
	return Check{Name: "parse_command", Fn: func(_ context.Context, in *Input) Outcome {
		in.IsCommand, in.Token, in.Args = ParseBody(in.Event.Body, in.Prefix)
		return Proceed("", nil)
	}}
}

// Triggers skips commands whose token is not one of triggers.
func Triggers(triggers []string) Check {
	return Check{Name: "triggers", Fn: func(_ context.Context, in *Input) Outcome {
		if !in.IsCommand {
			return Skip()
		}
		for _, trigger := range triggers {
			if in.Token == trigger {
				return Proceed("", nil)
			}
		}
		return Skip()
	}}
}

// FreeText skips prefixed commands.
func FreeText() Check {
	return Check{Name: "free_text", Fn: func(_ context.Context, in *Input) Outcome {
		if in.IsCommand || strings.TrimSpace(in.Event.Body) == "" {
			return Skip()
		}
		return Proceed("", nil)
	}}
}

// UnknownCommand lets through prefixed commands with a non-empty token that
// isKnown rejects.
func UnknownCommand(isKnown func(token string) bool) Check {
	return Check{Name: "unknown_command", Fn: func(_ context.Context, in *Input) Outcome {
		if !in.IsCommand || in.Token == "" || isKnown(in.Token) {
			return Skip()
		}
		return Proceed("", nil)
	}}
}

// Authorizer decides whether a sender may use the bot.
type Authorizer interface {
	Authorize(ctx context.Context, sender string) (allowed bool, reason string, err error)
}

// Authorized denies senders rejected by authorizer.
func Authorized(authorizer Authorizer) Check {
	return Check{Name: "authorized", Fn: func(ctx context.Context, in *Input) Outcome {
		allowed, reason, err := authorizer.Authorize(ctx, in.Event.Sender)
		if err != nil {
			return DenyError(err)
		}
		if !allowed {
			return Deny(reason)
		}
		return Proceed("", nil)
	}}
}

// ParseBody splits a message body. When body starts with prefix it returns
// the first whitespace-delimited word without the prefix and the remaining
// words.
func ParseBody(body, prefix string) (isCommand bool, token string, args []string) {
	body = strings.TrimSpace(body)
	if prefix == "" || !strings.HasPrefix(body, prefix) {
		return false, "", nil
	}

	words := strings.Fields(body)
	token = strings.TrimPrefix(words[0], prefix)
	if len(words) > 1 {
		args = words[1:]
	}
	return true, token, args
}
