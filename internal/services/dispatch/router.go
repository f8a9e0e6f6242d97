package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/pkg/logger"
	"github.com/unifiedui/assistant-bot/internal/services/features"
	"github.com/unifiedui/assistant-bot/internal/services/gate"
	"github.com/unifiedui/assistant-bot/internal/services/session"
)

// AccessControl is the part of the access gate the router consults.
type AccessControl interface {
	gate.Authorizer
	// RegisterPending records an unknown sender and reports whether a new
	// record was created.
	RegisterPending(ctx context.Context, sender string) (bool, error)
}

// RouterConfig holds the router settings.
type RouterConfig struct {
	Chat     chat.Client
	Registry *features.Registry
	Sessions session.Service
	// Access is optional; without it every sender is authorized.
	Access AccessControl
	Prefix string
	// ErrorsRoomID receives new pending user notifications, empty to disable.
	ErrorsRoomID string
	// Failed is the notice sent when a handler fails.
	Failed string
	// PendingNotice formats the operators' notification for a new sender.
	PendingNotice func(sender string) string
}

// Router evaluates the gate chain of every active feature for an inbound
// event and runs the first one that proceeds.
type Router struct {
	chat          chat.Client
	registry      *features.Registry
	sessions      session.Service
	access        AccessControl
	prefix        string
	errorsRoomID  string
	failed        string
	pendingNotice func(sender string) string
	log           zerolog.Logger
}

// NewRouter creates a Router.
func NewRouter(cfg *RouterConfig) (*Router, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Chat == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("feature registry is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("command prefix is required")
	}

	return &Router{
		chat:          cfg.Chat,
		registry:      cfg.Registry,
		sessions:      cfg.Sessions,
		access:        cfg.Access,
		prefix:        cfg.Prefix,
		errorsRoomID:  cfg.ErrorsRoomID,
		failed:        cfg.Failed,
		pendingNotice: cfg.PendingNotice,
		log:           logger.Component("router"),
	}, nil
}

// Bind registers the router on the chat client for every routed event kind.
func (r *Router) Bind() {
	r.chat.OnEvent(models.KindText, r.Handle)
	r.chat.OnEvent(models.KindMembership, r.Handle)
}

// Handle routes one inbound event. It never panics and never returns an
// error: failures are logged and reported to the room.
func (r *Router) Handle(ctx context.Context, room models.Room, event *models.Event) {
	log := r.log.With().
		Str("room_id", room.ID).
		Str("event_id", event.ID).
		Str("sender", event.Sender).
		Logger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("Panic while handling event")
		}
	}()

	var authorizer gate.Authorizer
	if r.access != nil {
		authorizer = r.access
	}

	for _, descriptor := range r.registry.Active(event.Kind) {
		chain := gate.ForDescriptor(descriptor, r.registry, authorizer)
		outcome := chain.Evaluate(ctx, &gate.Input{
			Room:   room,
			Event:  event,
			Self:   r.chat.UserID(),
			Prefix: r.prefix,
		})

		switch outcome.Kind {
		case gate.KindSkip:
			continue
		case gate.KindDeny:
			r.deny(ctx, room, event, outcome, log)
			return
		case gate.KindProceed:
			r.run(ctx, room, event, descriptor, outcome, log)
			return
		}
	}
}

func (r *Router) run(ctx context.Context, room models.Room, event *models.Event, descriptor features.Descriptor, outcome gate.Outcome, log zerolog.Logger) {
	sess, release := r.sessions.Acquire(ctx, event.Sender)
	defer release()

	if outcome.Token != "" {
		log.Info().
			Str("command", outcome.Token).
			Str("command_payload", strings.Join(outcome.Args, " ")).
			Msg("Handling command")
	} else {
		log.Debug().Str("feature", descriptor.Name).Msg("Handling event")
	}

	err := descriptor.Handler(ctx, &features.Request{
		Room:    room,
		Event:   event,
		Command: outcome.Token,
		Args:    outcome.Args,
		Session: sess,
	})
	if err != nil {
		log.Error().Err(err).Str("feature", descriptor.Name).Msg("Feature failed")
		r.notify(ctx, room.ID, r.failed, log)
	}

	if err := r.sessions.Save(ctx, sess); err != nil {
		log.Warn().Err(err).Msg("Failed to save session")
	}
}

func (r *Router) deny(ctx context.Context, room models.Room, event *models.Event, outcome gate.Outcome, log zerolog.Logger) {
	if outcome.Err != nil {
		log.Error().Err(outcome.Err).Msg("Authorization failed")
		r.notify(ctx, room.ID, r.failed, log)
		return
	}

	log.Info().Str("reason", outcome.Reason).Msg("Sender denied")

	if r.access != nil {
		created, err := r.access.RegisterPending(ctx, event.Sender)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to register pending sender")
		}
		if created && r.errorsRoomID != "" && r.pendingNotice != nil {
			r.notify(ctx, r.errorsRoomID, r.pendingNotice(event.Sender), log)
		}
	}

	r.notify(ctx, room.ID, outcome.Reason, log)
}

func (r *Router) notify(ctx context.Context, roomID, body string, log zerolog.Logger) {
	if body == "" {
		return
	}
	if _, err := r.chat.SendMessage(ctx, roomID, chat.OutboundMessage{Body: body, Markdown: true, Notice: true}); err != nil {
		log.Warn().Err(err).Str("target_room", roomID).Msg("Failed to send notice")
	}
}
