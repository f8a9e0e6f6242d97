package bot

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

func (b *Bot) help(ctx context.Context, req *features.Request) error {
	verbose := len(req.Args) > 0 && req.Args[0] == "-v"
	commands := b.registry.HelpEntries(req.Session, verbose)
	return b.notice(ctx, req.Room.ID, b.messages.Help(req.Session.Model, commands))
}

func (b *Bot) unknownCommand(ctx context.Context, req *features.Request) error {
	commands := b.registry.HelpEntries(req.Session, false)
	return b.notice(ctx, req.Room.ID, b.messages.UnknownCommand(commands))
}

func (b *Bot) join(ctx context.Context, req *features.Request) error {
	if !b.joinOnInvite {
		b.log.Info().Str("room_id", req.Room.ID).Str("sender", req.Event.Sender).Msg("Ignoring invite")
		return nil
	}
	if err := b.chat.JoinRoom(ctx, req.Room.ID); err != nil {
		b.log.Error().Err(err).Str("room_id", req.Room.ID).Msg("Failed to join room")
		return nil
	}
	b.log.Info().Str("room_id", req.Room.ID).Str("sender", req.Event.Sender).Msg("Joined room")
	return nil
}

func (b *Bot) reset(ctx context.Context, req *features.Request) error {
	req.Session.HistoryDepth = 0
	req.Session.LastActivity = time.Time{}
	return b.notice(ctx, req.Room.ID, b.messages.Reset())
}

func (b *Bot) conversation(ctx context.Context, req *features.Request) error {
	req.Session.WithHistory = !req.Session.WithHistory
	req.Session.HistoryDepth = 0
	req.Session.LastActivity = time.Time{}
	return b.notice(ctx, req.Room.ID, b.messages.Conversation(req.Session.WithHistory))
}

func (b *Bot) debug(ctx context.Context, req *features.Request) error {
	return b.notice(ctx, req.Room.ID, b.messages.Debug(req.Session))
}

func (b *Bot) model(ctx context.Context, req *features.Request) error {
	available, err := b.answers.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	requested := argument(req.Args)
	if !slices.Contains(available, requested) {
		return b.notice(ctx, req.Room.ID, b.messages.InvalidModel(requested, available))
	}

	req.Session.Model = requested
	req.Session.HistoryDepth = 0
	return b.notice(ctx, req.Room.ID, b.messages.ModelChanged(requested))
}

func (b *Bot) mode(ctx context.Context, req *features.Request) error {
	available, err := b.answers.ListModes(ctx, req.Session.Model)
	if err != nil {
		return fmt.Errorf("failed to list modes: %w", err)
	}
	if !slices.Contains(available, models.ModeNoRAG) {
		available = append(available, models.ModeNoRAG)
	}

	requested := argument(req.Args)
	if !slices.Contains(available, requested) {
		return b.notice(ctx, req.Room.ID, b.messages.InvalidMode(requested, available))
	}

	req.Session.Mode = requested
	if !req.Session.SourcesEnabled() {
		req.Session.LastSources = nil
	}
	return b.notice(ctx, req.Room.ID, b.messages.ModeChanged(requested))
}

func (b *Bot) sources(ctx context.Context, req *features.Request) error {
	if !req.Session.SourcesEnabled() {
		return b.notice(ctx, req.Room.ID, b.messages.SourcesDisabled())
	}
	if len(req.Session.LastSources) == 0 {
		return b.notice(ctx, req.Room.ID, b.messages.NoSources())
	}

	sources, err := b.answers.FetchSources(ctx, req.Session.LastSources)
	if err != nil {
		return fmt.Errorf("failed to fetch sources: %w", err)
	}
	if len(sources) == 0 {
		return b.notice(ctx, req.Room.ID, b.messages.NoSources())
	}
	return b.send(ctx, req.Room.ID, chat.OutboundMessage{Body: b.messages.Sources(sources), Markdown: true})
}

func (b *Bot) heure(ctx context.Context, req *features.Request) error {
	return b.send(ctx, req.Room.ID, chat.OutboundMessage{Body: b.messages.Time(b.now())})
}

func (b *Bot) notice(ctx context.Context, roomID, body string) error {
	return b.send(ctx, roomID, chat.OutboundMessage{Body: body, Markdown: true, Notice: true})
}

func (b *Bot) send(ctx context.Context, roomID string, message chat.OutboundMessage) error {
	if _, err := b.chat.SendMessage(ctx, roomID, message); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func argument(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
