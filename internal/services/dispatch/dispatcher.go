// Package dispatch routes inbound events to features and drives the
// answer generation of free-text messages.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/core/answer"
	"github.com/unifiedui/assistant-bot/internal/core/chat"
	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
	"github.com/unifiedui/assistant-bot/internal/services/conversation"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

// DefaultTypingTimeout bounds the typing indicator while waiting for an answer.
const DefaultTypingTimeout = 3 * time.Minute

// UsageRecorder accounts a successful answer to a sender.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, sender string) error
}

// Notices are the user-facing texts emitted by the dispatcher.
type Notices struct {
	// Failed is the apology sent when no answer could be generated.
	Failed string
	// Reset announces that an idle conversation was reset.
	Reset string
	// ErrorDebug formats the detailed failure forwarded to the operators' room.
	ErrorDebug func(reason string) string
}

// DispatcherConfig holds the dispatcher settings.
type DispatcherConfig struct {
	Chat    chat.Client
	Answers answer.Service
	Builder *conversation.Builder
	// Usage is optional.
	Usage         UsageRecorder
	Retry         RetryPolicy
	TypingTimeout time.Duration
	Notices       Notices
	// ErrorsRoomID receives the failure details, empty to disable.
	ErrorsRoomID string
	Now          func() time.Time
}

// Dispatcher runs the answer state machine of a free-text event:
// context building, answer generation, delivery and session bookkeeping.
type Dispatcher struct {
	chat          chat.Client
	answers       answer.Service
	builder       *conversation.Builder
	usage         UsageRecorder
	retry         RetryPolicy
	typingTimeout time.Duration
	notices       Notices
	errorsRoomID  string
	now           func() time.Time
	log           zerolog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg *DispatcherConfig) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Chat == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if cfg.Answers == nil {
		return nil, fmt.Errorf("answer service is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("context builder is required")
	}

	d := &Dispatcher{
		chat:          cfg.Chat,
		answers:       cfg.Answers,
		builder:       cfg.Builder,
		usage:         cfg.Usage,
		retry:         cfg.Retry,
		typingTimeout: cfg.TypingTimeout,
		notices:       cfg.Notices,
		errorsRoomID:  cfg.ErrorsRoomID,
		now:           cfg.Now,
		log:           logger.Component("dispatcher"),
	}
	if d.retry.MaxAttempts == 0 {
		d.retry = DefaultRetryPolicy()
	}
	if d.typingTimeout <= 0 {
		d.typingTimeout = DefaultTypingTimeout
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d, nil
}

// Answer handles one free-text event. Failures are reported to the room and
// rolled back on the session; the returned error is always nil so that the
// router does not emit a second notice.
func (d *Dispatcher) Answer(ctx context.Context, req *features.Request) error {
	sess := req.Session
	event := req.Event
	log := d.log.With().
		Str("room_id", req.Room.ID).
		Str("event_id", event.ID).
		Str("sender", event.Sender).
		Logger()

	d.typing(ctx, req.Room.ID, true, log)
	defer d.typing(context.WithoutCancel(ctx), req.Room.ID, false, log)

	now := d.now()
	if d.builder.ResetIfObsolete(sess, now) {
		log.Info().Msg("Conversation reset after inactivity")
		d.notify(ctx, req.Room.ID, d.notices.Reset, log)
	}

	depth := sess.HistoryDepth

	turns, err := d.builder.Build(ctx, sess, req.Room, event)
	if err != nil {
		sess.HistoryDepth = depth
		d.fail(ctx, req, err, log)
		return nil
	}
	if !event.IsReply() {
		sess.LastActivity = now
	}

	log.Debug().Int("turns", len(turns)).Int("history_depth", sess.HistoryDepth).Msg("Context built")

	reply, err := d.answers.Generate(ctx, turns, answer.SamplingParams{Model: sess.Model, Mode: sess.Mode})
	if err != nil {
		sess.HistoryDepth = depth
		d.fail(ctx, req, err, log)
		return nil
	}

	message := chat.OutboundMessage{Body: reply.Text, Markdown: true}
	if event.IsReply() {
		message.ReplyTo = event.ID
	}

	err = d.retry.Do(ctx, func(ctx context.Context) error {
		_, sendErr := d.chat.SendMessage(ctx, req.Room.ID, message)
		if sendErr != nil {
			log.Warn().Err(sendErr).Msg("Failed to send answer")
		}
		return sendErr
	})
	if err != nil {
		sess.HistoryDepth = depth
		log.Error().Err(err).Msg("Answer not delivered")
		return nil
	}

	if !event.IsReply() && sess.WithHistory {
		sess.HistoryDepth = min(sess.HistoryDepth+1, d.builder.MaxRewind())
	}
	sess.LastSources = reply.Sources
	sess.UpdatedAt = now

	if d.usage != nil {
		if err := d.usage.RecordUsage(ctx, event.Sender); err != nil {
			log.Warn().Err(err).Msg("Failed to record usage")
		}
	}

	log.Info().Int("history_depth", sess.HistoryDepth).Int("sources", len(reply.Sources)).Msg("Answer sent")
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, req *features.Request, err error, log zerolog.Logger) {
	log.Error().Err(err).Msg("Failed to generate answer")
	d.notify(ctx, req.Room.ID, d.notices.Failed, log)

	if d.errorsRoomID == "" || d.notices.ErrorDebug == nil {
		return
	}
	d.notify(ctx, d.errorsRoomID, d.notices.ErrorDebug(domainerrors.Detail(err)), log)
}

func (d *Dispatcher) notify(ctx context.Context, roomID, body string, log zerolog.Logger) {
	if body == "" {
		return
	}
	if _, err := d.chat.SendMessage(ctx, roomID, chat.OutboundMessage{Body: body, Markdown: true, Notice: true}); err != nil {
		log.Warn().Err(err).Str("target_room", roomID).Msg("Failed to send notice")
	}
}

func (d *Dispatcher) typing(ctx context.Context, roomID string, on bool, log zerolog.Logger) {
	if err := d.chat.SetTyping(ctx, roomID, on, d.typingTimeout); err != nil {
		log.Debug().Err(err).Bool("typing", on).Msg("Failed to set typing indicator")
	}
}
