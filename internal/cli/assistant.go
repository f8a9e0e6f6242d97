package cli

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/config"
	"github.com/unifiedui/assistant-bot/internal/core/answer"
	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/services/bot"
	"github.com/unifiedui/assistant-bot/internal/services/conversation"
	"github.com/unifiedui/assistant-bot/internal/services/dispatch"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

// assistant groups the components shared by the commands that need the
// feature registry.
type assistant struct {
	registry   *features.Registry
	messages   bot.Messages
	dispatcher *dispatch.Dispatcher
}

// buildAssistant wires the context builder, the answer dispatcher and the
// bot features, then activates the configured groups. usage may be nil.
func buildAssistant(cfg *config.Config, chatClient chat.Client, answers answer.Service, usage dispatch.UsageRecorder, log zerolog.Logger) (*assistant, error) {
	messages := bot.Messages{
		Prefix:       cfg.Bot.CommandPrefix,
		Version:      cfg.Bot.Version,
		APIURL:       cfg.Albert.APIURL,
		HomeServer:   cfg.Matrix.HomeServer,
		Contact:      cfg.Bot.ContactEmail,
		Obsolescence: cfg.Bot.ConversationObsolescence,
	}

	builder, err := conversation.NewBuilder(chatClient, conversation.Config{
		MaxRewind:      cfg.Bot.MaxRewind,
		Obsolescence:   cfg.Bot.ConversationObsolescence,
		NoticePrefixes: messages.NoticePrefixes(),
		CommandPrefix:  cfg.Bot.CommandPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation builder: %w", err)
	}

	dispatcher, err := dispatch.NewDispatcher(&dispatch.DispatcherConfig{
		Chat:          chatClient,
		Answers:       answers,
		Builder:       builder,
		Usage:         usage,
		Retry:         dispatch.RetryPolicy{MaxAttempts: 2, Backoff: cfg.Bot.SendRetryDelay},
		TypingTimeout: cfg.Bot.TypingTimeout,
		Notices: dispatch.Notices{
			Failed:     messages.Failed(),
			Reset:      messages.ResetNotice(),
			ErrorDebug: messages.ErrorDebug,
		},
		ErrorsRoomID: cfg.Bot.ErrorsRoomID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	b, err := bot.New(&bot.Config{
		Chat:         chatClient,
		Answers:      answers,
		Answerer:     dispatcher,
		Messages:     messages,
		JoinOnInvite: cfg.Matrix.JoinOnInvite,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	registry := features.NewRegistry()
	b.Register(registry)
	for _, group := range cfg.Bot.GroupsUsed {
		if activated := registry.ActivateGroup(group); len(activated) == 0 {
			log.Warn().Str("group", group).Msg("Unknown feature group")
		}
	}

	return &assistant{registry: registry, messages: messages, dispatcher: dispatcher}, nil
}
