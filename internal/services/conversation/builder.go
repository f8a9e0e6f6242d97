// Package conversation rebuilds the turns submitted to the answer service
// from the room history.
package conversation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
)

const (
	// DefaultPageSize is the number of events requested per history page.
	DefaultPageSize = 50
	// DefaultMaxPages bounds the history scan of one rolling window.
	DefaultMaxPages = 10
)

// Config holds the Context Builder settings.
type Config struct {
	// MaxRewind bounds the number of turns returned.
	MaxRewind int
	// Obsolescence is the idle time after which the rolling window resets.
	Obsolescence time.Duration
	// NoticePrefixes identify the bot's own notices, excluded from history.
	NoticePrefixes []string
	// CommandPrefix marks command messages, excluded from history.
	CommandPrefix string
	PageSize      int
	MaxPages      int
}

// Builder reconstructs conversation context.
type Builder struct {
	chat chat.Client
	cfg  Config
	log  zerolog.Logger
}

// NewBuilder creates a Context Builder reading history from chatClient.
func NewBuilder(chatClient chat.Client, cfg Config) (*Builder, error) {
	if chatClient == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if cfg.MaxRewind < 1 {
		return nil, fmt.Errorf("max rewind must be positive")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}

	return &Builder{
		chat: chatClient,
		cfg:  cfg,
		log:  logger.Component("conversation"),
	}, nil
}

// MaxRewind returns the configured turn bound.
func (b *Builder) MaxRewind() int {
	return b.cfg.MaxRewind
}

// ResetIfObsolete zeroes the history depth when the conversation has been
// idle longer than the obsolescence window and reports whether it did.
// LastActivity is cleared so that one idle period yields one reset.
func (b *Builder) ResetIfObsolete(session *models.UserSession, now time.Time) bool {
	if !session.WithHistory || session.LastActivity.IsZero() {
		return false
	}
	if now.Sub(session.LastActivity) <= b.cfg.Obsolescence {
		return false
	}

	session.HistoryDepth = 0
	session.LastActivity = time.Time{}
	return true
}

// Build returns the turns for event, earliest first. A reply walks the
// reply chain; otherwise the rolling window is used, incrementing the
// session history depth. With history off only the current message is used.
func (b *Builder) Build(ctx context.Context, session *models.UserSession, room models.Room, event *models.Event) ([]models.Turn, error) {
	if !session.WithHistory {
		return b.single(event), nil
	}

	var (
		events []*models.Event
		err    error
	)
	if event.IsReply() {
		events = b.thread(ctx, room, event)
	} else {
		session.HistoryDepth = min(session.HistoryDepth+1, b.cfg.MaxRewind)
		events, err = b.window(ctx, room, event, session.HistoryDepth)
		if err != nil {
			return nil, err
		}
	}

	turns := toTurns(session.Sender, events)
	if len(turns) == 0 {
		return b.single(event), nil
	}
	return turns, nil
}

// thread follows reply links from event, collecting at most MaxRewind
// events. A failed fetch ends the chain.
func (b *Builder) thread(ctx context.Context, room models.Room, event *models.Event) []*models.Event {
	chain := []*models.Event{event}
	current := event

	for len(chain) < b.cfg.MaxRewind && current.IsReply() {
		parent, err := b.chat.FetchEvent(ctx, room.ID, current.ReplyTo)
		if err != nil {
			b.log.Warn().Err(err).Str("room_id", room.ID).Str("event_id", current.ReplyTo).Msg("Reply chain interrupted")
			break
		}
		chain = append(chain, parent)
		current = parent
	}

	slices.Reverse(chain)
	return chain
}

// window collects the current event plus the depth-1 most recent
// qualifying events before it.
func (b *Builder) window(ctx context.Context, room models.Room, event *models.Event, depth int) ([]*models.Event, error) {
	want := min(depth, b.cfg.MaxRewind)
	collected := []*models.Event{event}

	from := ""
	for page := 0; page < b.cfg.MaxPages && len(collected) < want; page++ {
		history, err := b.chat.FetchHistory(ctx, room.ID, chat.HistoryOptions{
			From:      from,
			Limit:     b.cfg.PageSize,
			Direction: chat.Backward,
			Types:     []string{"m.room.message"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch room history: %w", err)
		}

		for _, candidate := range history.Events {
			if len(collected) >= want {
				break
			}
			if candidate.ID == event.ID || b.newerThan(candidate, event) || !b.qualifies(candidate) {
				continue
			}
			collected = append(collected, candidate)
		}

		if history.End == "" || len(history.Events) == 0 {
			break
		}
		from = history.End
	}

	slices.Reverse(collected)
	return collected, nil
}

func (b *Builder) newerThan(candidate, event *models.Event) bool {
	return !candidate.Timestamp.IsZero() && !event.Timestamp.IsZero() && candidate.Timestamp.After(event.Timestamp)
}

// qualifies filters out non-text events, replies, commands and the bot's
// own notices. Answers are sent as m.text, so every m.notice from the bot
// is a command reply or a status message.
func (b *Builder) qualifies(event *models.Event) bool {
	if !event.IsText() || event.IsReply() {
		return false
	}

	body := strings.TrimSpace(event.Body)
	if b.cfg.CommandPrefix != "" && strings.HasPrefix(body, b.cfg.CommandPrefix) {
		return false
	}
	if event.Sender == b.chat.UserID() {
		if event.MsgType == models.MsgTypeNotice {
			return false
		}
		for _, prefix := range b.cfg.NoticePrefixes {
			if strings.HasPrefix(body, prefix) {
				return false
			}
		}
	}
	return true
}

func (b *Builder) single(event *models.Event) []models.Turn {
	return []models.Turn{models.NewUserTurn(StripQuote(event.Body))}
}

func toTurns(sender string, events []*models.Event) []models.Turn {
	turns := make([]models.Turn, 0, len(events))
	for _, event := range events {
		if !event.IsText() {
			continue
		}
		content := StripQuote(event.Body)
		if content == "" {
			continue
		}

		role := models.RoleAssistant
		if event.Sender == sender {
			role = models.RoleUser
		}
		turns = append(turns, models.Turn{Role: role, Content: content})
	}
	return turns
}

// StripQuote removes the leading "> " quoted lines of a reply body.
func StripQuote(body string) string {
	lines := strings.Split(body, "\n")
	i := 0
	for i < len(lines) && strings.HasPrefix(lines[i], ">") {
		i++
	}
	return strings.TrimSpace(strings.Join(lines[i:], "\n"))
}
