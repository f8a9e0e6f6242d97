// Package matrix implements the chat client on top of the mautrix SDK.
package matrix

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/unifiedui/assistant-bot/internal/core/chat"
	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
)

// Config holds the Matrix client configuration.
type Config struct {
	HomeServer string
	Username   string
	Password   string
	DeviceName string
	// SyncTimeout bounds a sync long-poll. The HTTP client timeout is
	// derived from it when HTTPClient is nil.
	SyncTimeout time.Duration
	HTTPClient  *http.Client
	// RetryDelay is the pause after a failed sync. Defaults to 5s.
	RetryDelay time.Duration
}

// Client is an authenticated Matrix session that drives the sync loop and
// dispatches normalized events to the registered handlers.
type Client struct {
	api      *mautrix.Client
	syncer   *syncer
	username string
	password string
	device   string

	mu           sync.RWMutex
	nextBatch    string
	memberCounts map[string]int
	handlers     map[models.EventKind][]chat.EventHandler

	inflight sync.WaitGroup
	log      zerolog.Logger
}

var _ chat.Client = (*Client)(nil)

// NewClient creates an unauthenticated client. Call Login before Run.
func NewClient(cfg Config) (*Client, error) {
	if cfg.HomeServer == "" {
		return nil, fmt.Errorf("matrix: home server is required")
	}

	api, err := mautrix.NewClient(cfg.HomeServer, "", "")
	if err != nil {
		return nil, fmt.Errorf("matrix: invalid home server %q: %w", cfg.HomeServer, err)
	}

	syncTimeout := cfg.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = 30 * time.Second
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: syncTimeout + 30*time.Second}
	}

	log := logger.Component("matrix")
	api.Client = httpClient
	api.Log = log

	c := &Client{
		api:          api,
		username:     cfg.Username,
		password:     cfg.Password,
		device:       cfg.DeviceName,
		memberCounts: make(map[string]int),
		handlers:     make(map[models.EventKind][]chat.EventHandler),
		log:          log,
	}
	c.syncer = newSyncer(c, retryDelay)
	api.Syncer = c.syncer
	return c, nil
}

// Login authenticates with the configured username and password and keeps
// the returned access token on the client.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return fmt.Errorf("matrix: username and password are required for login")
	}

	resp, err := c.api.Login(ctx, &mautrix.ReqLogin{
		Type: mautrix.AuthTypePassword,
		Identifier: mautrix.UserIdentifier{
			Type: mautrix.IdentifierTypeUser,
			User: c.username,
		},
		Password:                 c.password,
		InitialDeviceDisplayName: c.device,
		StoreCredentials:         true,
	})
	if err != nil {
		return fmt.Errorf("matrix: login failed: %w", err)
	}

	c.log.Info().Str("user_id", string(resp.UserID)).Str("device_id", string(resp.DeviceID)).Msg("Logged in to matrix")
	return nil
}

// UserID returns the bot's own identity.
func (c *Client) UserID() string {
	return string(c.api.UserID)
}

// OnEvent registers a handler for an event kind. Handlers of a kind run in
// registration order.
func (c *Client) OnEvent(kind models.EventKind, handler chat.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = append(c.handlers[kind], handler)
}

// SendMessage sends an m.room.message and returns its event id.
func (c *Client) SendMessage(ctx context.Context, roomID string, message chat.OutboundMessage) (string, error) {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    message.Body,
	}
	if message.Notice {
		content.MsgType = event.MsgNotice
	}
	if message.Markdown {
		formatted, err := RenderMarkdown(message.Body)
		if err != nil {
			c.log.Warn().Err(err).Str("room_id", roomID).Msg("Failed to render markdown, sending plain text")
		} else {
			content.Format = event.FormatHTML
			content.FormattedBody = formatted
		}
	}
	if message.ReplyTo != "" {
		content.RelatesTo = &event.RelatesTo{
			InReplyTo: &event.InReplyTo{EventID: id.EventID(message.ReplyTo)},
		}
	}

	resp, err := c.api.SendMessageEvent(ctx, id.RoomID(roomID), event.EventMessage, content,
		mautrix.ReqSendEvent{TransactionID: uuid.NewString()})
	if err != nil {
		return "", domainerrors.NewTransportError("send message", err)
	}
	return string(resp.EventID), nil
}

// SetTyping sets or clears the typing indicator of the bot in a room.
func (c *Client) SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error {
	if !typing {
		timeout = 0
	}
	if _, err := c.api.UserTyping(ctx, id.RoomID(roomID), typing, timeout); err != nil {
		return domainerrors.NewTransportError("set typing", err)
	}
	return nil
}

// FetchHistory returns a page of room events from /messages. An empty From
// pages from the last sync position.
func (c *Client) FetchHistory(ctx context.Context, roomID string, opts chat.HistoryOptions) (*chat.HistoryPage, error) {
	from := opts.From
	if from == "" {
		c.mu.RLock()
		from = c.nextBatch
		c.mu.RUnlock()
	}

	direction := mautrix.DirectionBackward
	if opts.Direction == chat.Forward {
		direction = mautrix.DirectionForward
	}

	var filter *mautrix.FilterPart
	if len(opts.Types) > 0 {
		filter = &mautrix.FilterPart{Types: make([]event.Type, 0, len(opts.Types))}
		for _, t := range opts.Types {
			filter.Types = append(filter.Types, event.Type{Type: t, Class: event.MessageEventType})
		}
	}

	resp, err := c.api.Messages(ctx, id.RoomID(roomID), from, "", direction, filter, opts.Limit)
	if err != nil {
		return nil, domainerrors.NewTransportError("fetch history", err)
	}

	page := &chat.HistoryPage{
		Events: make([]*models.Event, 0, len(resp.Chunk)),
		End:    resp.End,
	}
	for _, evt := range resp.Chunk {
		page.Events = append(page.Events, toModel(roomID, evt))
	}
	return page, nil
}

// FetchEvent returns a single event of a room.
func (c *Client) FetchEvent(ctx context.Context, roomID, eventID string) (*models.Event, error) {
	evt, err := c.api.GetEvent(ctx, id.RoomID(roomID), id.EventID(eventID))
	if err != nil {
		return nil, domainerrors.NewTransportError("fetch event", err)
	}
	return toModel(roomID, evt), nil
}

// JoinRoom joins a room the bot was invited to.
func (c *Client) JoinRoom(ctx context.Context, roomID string) error {
	if _, err := c.api.JoinRoomByID(ctx, id.RoomID(roomID)); err != nil {
		return domainerrors.NewTransportError("join room", err)
	}
	return nil
}
