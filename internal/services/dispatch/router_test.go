package dispatch_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/assistant-bot/internal/config"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/mocks"
	"github.com/unifiedui/assistant-bot/internal/services/access"
	"github.com/unifiedui/assistant-bot/internal/services/dispatch"
	"github.com/unifiedui/assistant-bot/internal/services/features"
	"github.com/unifiedui/assistant-bot/internal/services/session"
)

const stranger = "@eve-exterieur.fr:agent.externe.tchap.gouv.fr"

type routerFixture struct {
	chat     *mocks.MockChatClient
	store    *mocks.MockUsersCollection
	registry *features.Registry
	sessions session.Service
	router   *dispatch.Router

	mu    sync.Mutex
	calls []string
}

func (f *routerFixture) record(name string) features.Handler {
	return func(ctx context.Context, req *features.Request) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, name+":"+req.Command)
		return nil
	}
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		chat:     new(mocks.MockChatClient),
		store:    new(mocks.MockUsersCollection),
		registry: features.NewRegistry(),
	}
	f.chat.On("UserID").Return(botID)
	f.store.On("FetchRecords", mock.Anything, mock.Anything).Return([]*models.AllowListEntry{
		{ID: "1", User: user, Status: models.StatusAllowed},
	}, nil)

	gate, err := access.NewGate(f.store, access.Config{
		Enabled:        true,
		TTL:            time.Hour,
		AllowedDomains: []string{"*"},
		DomainPattern:  config.DefaultDomainPattern,
	})
	require.NoError(t, err)

	f.sessions, err = session.NewService(&session.Config{Defaults: models.SessionDefaults{Model: "m", Mode: "rag", WithHistory: true}})
	require.NoError(t, err)

	f.registry.Register(features.Descriptor{Name: "help", Group: "basic", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"aide", "help"}, NeedsAccess: true, Handler: f.record("help")})
	f.registry.Register(features.Descriptor{Name: "answer", Group: "basic", Kind: models.KindText, Match: features.MatchFreeText, DirectOnly: true, NeedsAccess: true, Handler: f.record("answer")})
	f.registry.Register(features.Descriptor{Name: "unknown", Group: "basic", Kind: models.KindText, Match: features.MatchUnknownCommand, NeedsAccess: true, Handler: f.record("unknown")})
	f.registry.Register(features.Descriptor{Name: "join", Group: "basic", Kind: models.KindMembership, Match: features.MatchMembership, InviteOnly: true, Handler: f.record("join")})
	f.registry.ActivateGroup("basic")

	f.router, err = dispatch.NewRouter(&dispatch.RouterConfig{
		Chat:          f.chat,
		Registry:      f.registry,
		Sessions:      f.sessions,
		Access:        gate,
		Prefix:        "!",
		ErrorsRoomID:  opsRoomID,
		Failed:        failedText,
		PendingNotice: func(sender string) string { return "Nouvel utilisateur en attente : " + sender },
	})
	require.NoError(t, err)
	return f
}

func message(sender, body string) *models.Event {
	return &models.Event{ID: "$e", RoomID: roomID, Sender: sender, Kind: models.KindText, MsgType: models.MsgTypeText, Body: body}
}

var direct = models.Room{ID: roomID, MemberCount: 2}

func TestNewRouter_Validation(t *testing.T) {
	_, err := dispatch.NewRouter(nil)
	assert.Error(t, err)

	_, err = dispatch.NewRouter(&dispatch.RouterConfig{Chat: new(mocks.MockChatClient), Registry: features.NewRegistry()})
	assert.Error(t, err)
}

func TestRouter_Bind(t *testing.T) {
	f := newRouterFixture(t)
	f.chat.On("OnEvent", models.KindText, mock.Anything).Once()
	f.chat.On("OnEvent", models.KindMembership, mock.Anything).Once()

	f.router.Bind()

	f.chat.AssertExpectations(t)
}

func TestRouter_CommandRunsMatchingFeature(t *testing.T) {
	f := newRouterFixture(t)

	f.router.Handle(context.Background(), direct, message(user, "!aide -v"))

	assert.Equal(t, []string{"help:aide"}, f.calls)
}

func TestRouter_FreeTextAndUnknownCommand(t *testing.T) {
	f := newRouterFixture(t)

	f.router.Handle(context.Background(), direct, message(user, "Bonjour"))
	f.router.Handle(context.Background(), direct, message(user, "!inconnue"))

	assert.Equal(t, []string{"answer:", "unknown:inconnue"}, f.calls)
}

func TestRouter_OwnMessagesSkipped(t *testing.T) {
	f := newRouterFixture(t)

	f.router.Handle(context.Background(), direct, message(botID, "!aide"))

	assert.Empty(t, f.calls)
	f.chat.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestRouter_FreeTextIgnoredInGroupRooms(t *testing.T) {
	f := newRouterFixture(t)

	f.router.Handle(context.Background(), models.Room{ID: roomID, MemberCount: 5}, message(user, "Bonjour"))

	assert.Empty(t, f.calls)
}

func TestRouter_DeniedSenderRegisteredOnce(t *testing.T) {
	f := newRouterFixture(t)
	f.store.On("InsertRecords", mock.Anything, mock.MatchedBy(func(records []*models.AllowListEntry) bool {
		return len(records) == 1 && records[0].User == stranger && records[0].Status == models.StatusPending
	})).Return(nil).Once()
	f.chat.On("SendMessage", mock.Anything, roomID, withBody(access.ReasonNotAllowed)).Return("$deny", nil).Times(3)
	f.chat.On("SendMessage", mock.Anything, opsRoomID, withBody("Nouvel utilisateur en attente : "+stranger)).Return("$ops", nil).Once()

	for i := 0; i < 3; i++ {
		f.router.Handle(context.Background(), direct, message(stranger, "!aide"))
	}

	assert.Empty(t, f.calls)
	f.store.AssertNumberOfCalls(t, "InsertRecords", 1)
	f.store.AssertNumberOfCalls(t, "FetchRecords", 1)
	f.chat.AssertExpectations(t)
}

func TestRouter_AuthorizationErrorSendsFailure(t *testing.T) {
	f := newRouterFixture(t)
	f.store.ExpectedCalls = nil
	f.store.On("FetchRecords", mock.Anything, mock.Anything).Return(nil, errors.New("mongo down"))
	f.chat.On("SendMessage", mock.Anything, roomID, withBody(failedText)).Return("$failed", nil).Once()

	f.router.Handle(context.Background(), direct, message(user, "!aide"))

	assert.Empty(t, f.calls)
	f.chat.AssertExpectations(t)
	f.store.AssertNotCalled(t, "InsertRecords", mock.Anything, mock.Anything)
}

func TestRouter_HandlerErrorSendsFailure(t *testing.T) {
	f := newRouterFixture(t)
	f.registry.Register(features.Descriptor{Name: "help", Group: "basic", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"aide"},
		Handler: func(ctx context.Context, req *features.Request) error { return errors.New("boom") }})
	f.chat.On("SendMessage", mock.Anything, roomID, withBody(failedText)).Return("$failed", nil).Once()

	f.router.Handle(context.Background(), direct, message(user, "!aide"))

	f.chat.AssertExpectations(t)
}

func TestRouter_PanicRecovered(t *testing.T) {
	f := newRouterFixture(t)
	f.registry.Register(features.Descriptor{Name: "help", Group: "basic", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"aide"},
		Handler: func(ctx context.Context, req *features.Request) error { panic("unexpected") }})

	assert.NotPanics(t, func() {
		f.router.Handle(context.Background(), direct, message(user, "!aide"))
	})

	sess, release := f.sessions.Acquire(context.Background(), user)
	release()
	assert.NotNil(t, sess, "session lock released after panic")
}

func TestRouter_InviteJoin(t *testing.T) {
	f := newRouterFixture(t)
	invite := &models.Event{ID: "$inv", RoomID: roomID, Sender: user, Kind: models.KindMembership, Membership: models.MembershipInvite, StateKey: botID}

	f.router.Handle(context.Background(), models.Room{ID: roomID}, invite)

	assert.Equal(t, []string{"join:"}, f.calls)
}

func TestRouter_SessionsPersistAcrossEvents(t *testing.T) {
	f := newRouterFixture(t)
	f.registry.Register(features.Descriptor{Name: "help", Group: "basic", Kind: models.KindText, Match: features.MatchCommand, Triggers: []string{"aide"},
		Handler: func(ctx context.Context, req *features.Request) error {
			req.Session.HistoryDepth++
			return nil
		}})

	f.router.Handle(context.Background(), direct, message(user, "!aide"))
	f.router.Handle(context.Background(), direct, message(user, "!aide"))

	sess, release := f.sessions.Acquire(context.Background(), user)
	defer release()
	assert.Equal(t, 2, sess.HistoryDepth)
	assert.Equal(t, 1, f.sessions.Count())
}
