package matrix

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"

	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// syncer is the mautrix default syncer with the bot's retry policy: a
// revoked token stops the loop, anything else is retried after retryDelay.
type syncer struct {
	*mautrix.DefaultSyncer
	client     *Client
	retryDelay time.Duration
}

func newSyncer(client *Client, retryDelay time.Duration) *syncer {
	s := &syncer{
		DefaultSyncer: mautrix.NewDefaultSyncer(),
		client:        client,
		retryDelay:    retryDelay,
	}
	s.OnSync(client.recordSync)
	s.OnEventType(event.EventMessage, client.handleEvent)
	s.OnEventType(event.StateMember, client.handleEvent)
	return s
}

// OnFailedSync implements mautrix.Syncer.
func (s *syncer) OnFailedSync(_ *mautrix.RespSync, err error) (time.Duration, error) {
	if errors.Is(err, mautrix.MUnknownToken) {
		return 0, err
	}
	s.client.log.Error().Err(err).Dur("retry_in", s.retryDelay).Msg("Sync failed")
	return s.retryDelay, nil
}

// Run drives the sync long-poll loop until ctx is cancelled. The first sync
// only records the position so that the backlog is not answered on startup.
// Handlers run concurrently, one goroutine per event; Run waits for them
// before returning.
func (c *Client) Run(ctx context.Context) error {
	defer c.inflight.Wait()

	err := c.api.SyncWithContext(ctx)
	if err == nil || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("matrix: sync stopped: %w", err)
}

// MemberCount returns the last known joined member count of a room.
func (c *Client) MemberCount(roomID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.memberCounts[roomID]
}

// recordSync keeps the sync position and room summaries. Returning false on
// the initial sync drops its events.
func (c *Client) recordSync(_ context.Context, resp *mautrix.RespSync, since string) bool {
	c.mu.Lock()
	c.nextBatch = resp.NextBatch
	for roomID, room := range resp.Rooms.Join {
		if room != nil && room.Summary.JoinedMemberCount != nil {
			c.memberCounts[string(roomID)] = *room.Summary.JoinedMemberCount
		}
	}
	c.mu.Unlock()

	return since != ""
}

// handleEvent forwards joined-room timeline events and invites addressed to
// the bot. Room state snapshots and left rooms are ignored.
func (c *Client) handleEvent(ctx context.Context, evt *event.Event) {
	source := evt.Mautrix.EventSource
	switch {
	case source&event.SourceInvite != 0:
		if evt.GetStateKey() != c.UserID() {
			return
		}
	case source&event.SourceJoin != 0 && source&event.SourceTimeline != 0:
	default:
		return
	}

	roomID := string(evt.RoomID)
	c.dispatch(ctx, models.Room{ID: roomID, MemberCount: c.MemberCount(roomID)}, toModel(roomID, evt))
}

func (c *Client) dispatch(ctx context.Context, room models.Room, inbound *models.Event) {
	c.mu.RLock()
	handlers := append([]chat.EventHandler(nil), c.handlers[inbound.Kind]...)
	c.mu.RUnlock()

	for _, handler := range handlers {
		c.inflight.Add(1)
		go func(handler chat.EventHandler) {
			defer c.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					c.log.Error().
						Interface("panic", r).
						Str("stack", string(debug.Stack())).
						Str("room_id", room.ID).
						Str("event_id", inbound.ID).
						Msg("Event handler panicked")
				}
			}()
			handler(ctx, room, inbound)
		}(handler)
	}
}
