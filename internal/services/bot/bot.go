// Package bot wires the concrete commands of the assistant into the
// feature registry.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/core/answer"
	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

// Feature groups.
const (
	GroupBasic  = "basic"
	GroupAlbert = "albert"
	GroupUtils  = "utils"
)

// Answerer handles free-text messages.
type Answerer interface {
	Answer(ctx context.Context, req *features.Request) error
}

// Config holds the bot dependencies.
type Config struct {
	Chat     chat.Client
	Answers  answer.Service
	Answerer Answerer
	Messages Messages
	// JoinOnInvite accepts room invitations.
	JoinOnInvite bool
	Now          func() time.Time
}

// Bot implements the command handlers.
type Bot struct {
	chat         chat.Client
	answers      answer.Service
	answerer     Answerer
	messages     Messages
	joinOnInvite bool
	now          func() time.Time
	registry     *features.Registry
	log          zerolog.Logger
}

// New creates a Bot.
func New(cfg *Config) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Chat == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if cfg.Answers == nil {
		return nil, fmt.Errorf("answer service is required")
	}
	if cfg.Answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Bot{
		chat:         cfg.Chat,
		answers:      cfg.Answers,
		answerer:     cfg.Answerer,
		messages:     cfg.Messages,
		joinOnInvite: cfg.JoinOnInvite,
		now:          now,
		log:          logger.Component("bot"),
	}, nil
}

// Register adds every feature to registry. Groups still need to be
// activated.
func (b *Bot) Register(registry *features.Registry) {
	b.registry = registry
	m := b.messages

	for _, d := range []features.Descriptor{
		{
			Name: "help", Group: GroupBasic, Triggers: []string{"aide", "help"},
			Help: m.short("help"), NeedsAccess: true, Handler: b.help,
		},
		{
			Name: "unknown_command", Group: GroupBasic, Match: features.MatchUnknownCommand,
			NeedsAccess: true, Handler: b.unknownCommand,
		},
		{
			Name: "join", Group: GroupBasic, Kind: models.KindMembership, Match: features.MatchMembership,
			InviteOnly: true, Handler: b.join,
		},
		{
			Name: "answer", Group: GroupAlbert, Match: features.MatchFreeText,
			DirectOnly: true, NeedsAccess: true, Handler: b.answerer.Answer,
		},
		{
			Name: "reset", Group: GroupAlbert, Triggers: []string{"reset"},
			Help: m.short("reset"), NeedsAccess: true, Handler: b.reset,
		},
		{
			Name: "conversation", Group: GroupAlbert, Triggers: []string{"conversation"},
			Help: m.short("conversation"), NeedsAccess: true, Handler: b.conversation,
		},
		{
			Name: "debug", Group: GroupAlbert, Triggers: []string{"debug"},
			Help: m.short("debug"), Tier: features.TierAdvanced, NeedsAccess: true, Handler: b.debug,
		},
		{
			Name: "model", Group: GroupAlbert, Triggers: []string{"model"},
			Help: m.short("model"), Tier: features.TierAdvanced, NeedsAccess: true, Handler: b.model,
		},
		{
			Name: "mode", Group: GroupAlbert, Triggers: []string{"mode"},
			Help: m.short("mode"), NeedsAccess: true, Handler: b.mode,
		},
		{
			Name: "sources", Group: GroupAlbert, Triggers: []string{"sources"},
			Help: m.short("sources"), NeedsAccess: true, Handler: b.sources,
			Visible: func(s *models.UserSession) bool { return s.SourcesEnabled() },
		},
		{
			Name: "heure", Group: GroupUtils, Triggers: []string{"heure"},
			Help: m.short("heure"), Handler: b.heure,
		},
	} {
		if d.Kind == "" {
			d.Kind = models.KindText
		}
		registry.Register(d)
	}
}
