// Package chat defines the chat client collaborator used by the bot.
package chat

import (
	"context"
	"time"

	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// Direction is the pagination direction of a history fetch.
type Direction string

const (
	// Backward pages from newest to oldest.
	Backward Direction = "b"
	// Forward pages from oldest to newest.
	Forward Direction = "f"
)

// OutboundMessage is a message sent by the bot into a room.
type OutboundMessage struct {
	Body string
	// Markdown renders Body to an HTML formatted body.
	Markdown bool
	// Notice sends the message as m.notice instead of m.text.
	Notice bool
	// ReplyTo links the message as a reply to an event id.
	ReplyTo string
}

// HistoryOptions controls a room history fetch.
type HistoryOptions struct {
	// From is a pagination token; empty means the current sync position.
	From      string
	Limit     int
	Direction Direction
	// Types restricts the returned event types (e.g. "m.room.message").
	Types []string
}

// HistoryPage is one page of room history.
type HistoryPage struct {
	Events []*models.Event
	// End is the token to continue paginating, empty when exhausted.
	End string
}

// EventHandler receives inbound events from the sync loop.
type EventHandler func(ctx context.Context, room models.Room, event *models.Event)

// Client is the chat transport. All operations are fallible and blocking.
type Client interface {
	// UserID returns the bot's own identity.
	UserID() string

	// SendMessage sends a message and returns the new event id.
	SendMessage(ctx context.Context, roomID string, message OutboundMessage) (string, error)

	// SetTyping sets or clears the typing indicator.
	SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error

	// FetchHistory returns a page of room events.
	FetchHistory(ctx context.Context, roomID string, opts HistoryOptions) (*HistoryPage, error)

	// FetchEvent returns a single event of a room.
	FetchEvent(ctx context.Context, roomID, eventID string) (*models.Event, error)

	// JoinRoom joins a room the bot was invited to.
	JoinRoom(ctx context.Context, roomID string) error

	// OnEvent registers a handler for an event kind.
	OnEvent(kind models.EventKind, handler EventHandler)
}
