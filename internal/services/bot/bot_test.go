package bot_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/assistant-bot/internal/core/answer"
	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/mocks"
	"github.com/unifiedui/assistant-bot/internal/services/bot"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

const (
	user   = "@alice-finances.gouv.fr:agent.tchap.gouv.fr"
	roomID = "!direct:agent.tchap.gouv.fr"
	model  = "AgentPublic/llama3-instruct-8b"
)

type answerer struct{ calls int }

func (a *answerer) Answer(ctx context.Context, req *features.Request) error {
	a.calls++
	return nil
}

type fixture struct {
	chat     *mocks.MockChatClient
	answers  *mocks.MockAnswerService
	answerer *answerer
	registry *features.Registry
	sent     []chat.OutboundMessage
}

func messages() bot.Messages {
	return bot.Messages{
		Prefix:       "!",
		Version:      "1.2.0",
		APIURL:       "https://albert.example.gouv.fr",
		HomeServer:   "https://matrix.agent.tchap.gouv.fr",
		Contact:      "albert-contact@data.gouv.fr",
		Obsolescence: 15 * time.Minute,
	}
}

func newFixture(t *testing.T, groups ...string) *fixture {
	t.Helper()
	f := &fixture{
		chat:     new(mocks.MockChatClient),
		answers:  new(mocks.MockAnswerService),
		answerer: &answerer{},
		registry: features.NewRegistry(),
	}
	f.chat.On("SendMessage", mock.Anything, roomID, mock.Anything).
		Run(func(args mock.Arguments) { f.sent = append(f.sent, args.Get(2).(chat.OutboundMessage)) }).
		Return("$sent", nil).Maybe()

	b, err := bot.New(&bot.Config{
		Chat:         f.chat,
		Answers:      f.answers,
		Answerer:     f.answerer,
		Messages:     messages(),
		JoinOnInvite: true,
		Now:          func() time.Time { return time.Date(2026, 3, 1, 14, 7, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	b.Register(f.registry)

	if len(groups) == 0 {
		groups = []string{bot.GroupBasic, bot.GroupAlbert}
	}
	for _, g := range groups {
		f.registry.ActivateGroup(g)
	}
	return f
}

func (f *fixture) run(t *testing.T, name string, sess *models.UserSession, args ...string) error {
	t.Helper()
	d, ok := f.registry.Lookup(name)
	require.True(t, ok, name)
	return d.Handler(context.Background(), &features.Request{
		Room:    models.Room{ID: roomID, MemberCount: 2},
		Event:   &models.Event{ID: "$e", RoomID: roomID, Sender: user, Kind: models.KindText, MsgType: models.MsgTypeText},
		Command: name,
		Args:    args,
		Session: sess,
	})
}

func (f *fixture) last(t *testing.T) chat.OutboundMessage {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func newSession() *models.UserSession {
	return models.NewUserSession(user, models.SessionDefaults{Model: model, Mode: "rag", WithHistory: true})
}

func TestNew_Validation(t *testing.T) {
	_, err := bot.New(nil)
	assert.Error(t, err)

	_, err = bot.New(&bot.Config{Chat: new(mocks.MockChatClient)})
	assert.Error(t, err)
}

func TestRegister_Groups(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.registry.IsKnownCommand("aide"))
	assert.True(t, f.registry.IsKnownCommand("help"))
	assert.True(t, f.registry.IsKnownCommand("mode"))
	assert.False(t, f.registry.IsKnownCommand("heure"), "utils group not activated")

	f.registry.ActivateGroup(bot.GroupUtils)
	assert.True(t, f.registry.IsKnownCommand("heure"))
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	sess := newSession()

	require.NoError(t, f.run(t, "help", sess))
	basic := f.last(t)
	assert.True(t, basic.Notice)
	assert.True(t, strings.HasPrefix(basic.Body, "👋 Bonjour, je suis **Albert**"))
	assert.Contains(t, basic.Body, "[llama3-instruct-8b](https://huggingface.co/"+model+")")
	assert.Contains(t, basic.Body, "`!reset`")
	assert.NotContains(t, basic.Body, "`!debug`")

	require.NoError(t, f.run(t, "help", sess, "-v"))
	assert.Contains(t, f.last(t).Body, "`!debug`")
}

func TestHelp_HidesSourcesWithoutRetrieval(t *testing.T) {
	f := newFixture(t)
	sess := newSession()
	sess.Mode = models.ModeNoRAG

	require.NoError(t, f.run(t, "help", sess))

	assert.NotContains(t, f.last(t).Body, "`!sources`")
}

func TestUnknownCommand(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "unknown_command", newSession()))

	body := f.last(t).Body
	assert.True(t, strings.HasPrefix(body, "⚠️ **Commande inconnue**"))
	assert.Contains(t, body, "`!aide`")
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	sess := newSession()
	sess.HistoryDepth = 7
	sess.LastActivity = time.Now()

	require.NoError(t, f.run(t, "reset", sess))

	assert.Equal(t, 0, sess.HistoryDepth)
	assert.True(t, sess.LastActivity.IsZero())
	assert.True(t, strings.HasPrefix(f.last(t).Body, "**La conversation a été remise à zéro**"))
}

func TestConversationToggle(t *testing.T) {
	f := newFixture(t)
	sess := newSession()
	sess.HistoryDepth = 3

	require.NoError(t, f.run(t, "conversation", sess))
	assert.False(t, sess.WithHistory)
	assert.Equal(t, 0, sess.HistoryDepth)
	assert.Equal(t, "Le mode conversation est désactivé.", f.last(t).Body)

	require.NoError(t, f.run(t, "conversation", sess))
	assert.True(t, sess.WithHistory)
	assert.Equal(t, "Le mode conversation est activé.", f.last(t).Body)
}

func TestDebug(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "debug", newSession()))

	body := f.last(t).Body
	assert.True(t, strings.HasPrefix(body, "🤖 Configuration actuelle"))
	assert.Contains(t, body, "- Version: 1.2.0")
	assert.Contains(t, body, "- Model: "+model)
	assert.Contains(t, body, "- With history: true")
}

func TestModel(t *testing.T) {
	f := newFixture(t)
	f.answers.On("ListModels", mock.Anything).Return([]string{model, "AgentPublic/albertlight-7b"}, nil)
	sess := newSession()
	sess.HistoryDepth = 4

	require.NoError(t, f.run(t, "model", sess, "AgentPublic/albertlight-7b"))
	assert.Equal(t, "AgentPublic/albertlight-7b", sess.Model)
	assert.Equal(t, 0, sess.HistoryDepth)

	require.NoError(t, f.run(t, "model", sess, "gpt"))
	assert.Equal(t, "AgentPublic/albertlight-7b", sess.Model)
	assert.Contains(t, f.last(t).Body, "- "+model)
}

func TestModel_ListError(t *testing.T) {
	f := newFixture(t)
	f.answers.On("ListModels", mock.Anything).Return(nil, errors.New("albert down"))
	sess := newSession()

	assert.Error(t, f.run(t, "model", sess, "x"))
	assert.Equal(t, model, sess.Model)
}

func TestMode_ChangeThenReject(t *testing.T) {
	f := newFixture(t)
	f.answers.On("ListModes", mock.Anything, model).Return([]string{"rag", "simple"}, nil)
	sess := newSession()
	sess.Mode = "simple"

	require.NoError(t, f.run(t, "mode", sess, "rag"))
	assert.Equal(t, "rag", sess.Mode)
	assert.Equal(t, "Le mode a été modifié : rag", f.last(t).Body)

	require.NoError(t, f.run(t, "mode", sess, "unknown"))
	assert.Equal(t, "rag", sess.Mode)
	body := f.last(t).Body
	assert.Contains(t, body, "- rag")
	assert.Contains(t, body, "- simple")
	assert.Contains(t, body, "- norag")
}

func TestMode_NoRAGClearsSources(t *testing.T) {
	f := newFixture(t)
	f.answers.On("ListModes", mock.Anything, model).Return([]string{"rag"}, nil)
	sess := newSession()
	sess.LastSources = []string{"chunk-1"}

	require.NoError(t, f.run(t, "mode", sess, models.ModeNoRAG))

	assert.Equal(t, models.ModeNoRAG, sess.Mode)
	assert.Nil(t, sess.LastSources)
}

func TestSources(t *testing.T) {
	f := newFixture(t)
	sess := newSession()

	require.NoError(t, f.run(t, "sources", sess))
	assert.Equal(t, "Aucune source n'a été utilisée pour ma dernière réponse.", f.last(t).Body)

	sess.LastSources = []string{"c1", "c2"}
	f.answers.On("FetchSources", mock.Anything, []string{"c1", "c2"}).Return([]answer.Source{
		{ID: "c1", Title: "Carte grise", URL: "https://www.service-public.fr/particuliers/vosdroits/F1050"},
		{ID: "c2"},
	}, nil)

	require.NoError(t, f.run(t, "sources", sess))
	body := f.last(t).Body
	assert.Contains(t, body, "- [Carte grise](https://www.service-public.fr/particuliers/vosdroits/F1050)")
	assert.Contains(t, body, "- c2")
	assert.False(t, f.last(t).Notice)
}

func TestSources_DisabledMode(t *testing.T) {
	f := newFixture(t)
	sess := newSession()
	sess.Mode = models.ModeNoRAG
	sess.LastSources = []string{"c1"}

	require.NoError(t, f.run(t, "sources", sess))

	assert.Contains(t, f.last(t).Body, "n'utilise pas de sources")
	f.answers.AssertNotCalled(t, "FetchSources", mock.Anything, mock.Anything)
}

func TestHeure(t *testing.T) {
	f := newFixture(t, bot.GroupUtils)

	require.NoError(t, f.run(t, "heure", newSession()))

	assert.Equal(t, "il est 14h07", f.last(t).Body)
}

func TestAnswerDelegates(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run(t, "answer", newSession()))

	assert.Equal(t, 1, f.answerer.calls)
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	f.chat.On("JoinRoom", mock.Anything, roomID).Return(nil).Once()

	require.NoError(t, f.run(t, "join", newSession()))

	f.chat.AssertExpectations(t)
}

func TestSendFailureReturnsError(t *testing.T) {
	f := newFixture(t)
	f.chat.ExpectedCalls = nil
	f.chat.On("SendMessage", mock.Anything, roomID, mock.Anything).Return("", errors.New("M_FORBIDDEN"))

	assert.Error(t, f.run(t, "debug", newSession()))
}

func TestNoticePrefixesCoverNotices(t *testing.T) {
	m := messages()
	sess := newSession()

	for _, body := range []string{
		m.Help(model, nil),
		m.Debug(sess),
		m.UnknownCommand(nil),
		m.Reset(),
		m.ResetNotice(),
		m.Failed(),
		m.InvalidMode("x", nil),
	} {
		matched := false
		for _, prefix := range m.NoticePrefixes() {
			if strings.HasPrefix(body, prefix) {
				matched = true
			}
		}
		assert.True(t, matched, body)
	}
}
