package dispatch_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/assistant-bot/internal/core/answer"
	"github.com/unifiedui/assistant-bot/internal/core/chat"
	domainerrors "github.com/unifiedui/assistant-bot/internal/domain/errors"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
	"github.com/unifiedui/assistant-bot/internal/mocks"
	"github.com/unifiedui/assistant-bot/internal/services/conversation"
	"github.com/unifiedui/assistant-bot/internal/services/dispatch"
	"github.com/unifiedui/assistant-bot/internal/services/features"
)

const (
	botID      = "@albert:agent.tchap.gouv.fr"
	user       = "@alice-finances.gouv.fr:agent.tchap.gouv.fr"
	roomID     = "!direct:agent.tchap.gouv.fr"
	opsRoomID  = "!ops:agent.tchap.gouv.fr"
	failedText = "🤖 Albert a échoué à répondre. Veuillez réessayez dans un moment."
	resetText  = "**La conversation a été remise à zéro**."
)

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type usageRecorder struct {
	senders []string
	err     error
}

func (u *usageRecorder) RecordUsage(ctx context.Context, sender string) error {
	u.senders = append(u.senders, sender)
	return u.err
}

func errorDebug(reason string) string { return "⚠️ **Albert API error**\n\n" + reason }

func withBody(body string) interface{} {
	return mock.MatchedBy(func(m chat.OutboundMessage) bool { return m.Body == body })
}

type dispatcherFixture struct {
	chat    *mocks.MockChatClient
	answers *mocks.MockAnswerService
	usage   *usageRecorder
	d       *dispatch.Dispatcher
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	return newDispatcherFixtureWithErrorsRoom(t, opsRoomID)
}

func newDispatcherFixtureWithErrorsRoom(t *testing.T, errorsRoomID string) *dispatcherFixture {
	t.Helper()
	f := &dispatcherFixture{
		chat:    new(mocks.MockChatClient),
		answers: new(mocks.MockAnswerService),
		usage:   &usageRecorder{},
	}
	f.chat.On("UserID").Return(botID).Maybe()
	f.chat.On("SetTyping", mock.Anything, roomID, mock.Anything, mock.Anything).Return(nil)

	builder, err := conversation.NewBuilder(f.chat, conversation.Config{
		MaxRewind:      10,
		Obsolescence:   15 * time.Minute,
		NoticePrefixes: []string{"**La conversation a été remise à zéro**"},
		CommandPrefix:  "!",
	})
	require.NoError(t, err)

	f.d, err = dispatch.NewDispatcher(&dispatch.DispatcherConfig{
		Chat:         f.chat,
		Answers:      f.answers,
		Builder:      builder,
		Usage:        f.usage,
		Retry:        dispatch.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond},
		Notices:      dispatch.Notices{Failed: failedText, Reset: resetText, ErrorDebug: errorDebug},
		ErrorsRoomID: errorsRoomID,
		Now:          func() time.Time { return now },
	})
	require.NoError(t, err)
	return f
}

func request(sess *models.UserSession, event *models.Event) *features.Request {
	return &features.Request{Room: models.Room{ID: roomID, MemberCount: 2}, Event: event, Session: sess}
}

func freeText(id, body string) *models.Event {
	return &models.Event{ID: id, RoomID: roomID, Sender: user, Kind: models.KindText, MsgType: models.MsgTypeText, Body: body, Timestamp: now}
}

func newSession() *models.UserSession {
	return models.NewUserSession(user, models.SessionDefaults{
		Model: "AgentPublic/albertlight-7b", Mode: "rag", WithHistory: true,
	})
}

func TestNewDispatcher_Validation(t *testing.T) {
	_, err := dispatch.NewDispatcher(nil)
	assert.Error(t, err)

	_, err = dispatch.NewDispatcher(&dispatch.DispatcherConfig{Chat: new(mocks.MockChatClient)})
	assert.Error(t, err)
}

func TestAnswer_Success(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := newSession()

	f.answers.On("Generate", mock.Anything, []models.Turn{models.NewUserTurn("Bonjour")}, answer.SamplingParams{
		Model: "AgentPublic/albertlight-7b", Mode: "rag",
	}).Return(&answer.Answer{Text: "Bonjour, que puis-je pour vous ?", Sources: []string{"chunk-1"}}, nil)
	f.chat.On("SendMessage", mock.Anything, roomID, mock.MatchedBy(func(m chat.OutboundMessage) bool {
		return m.Body == "Bonjour, que puis-je pour vous ?" && m.Markdown && !m.Notice && m.ReplyTo == ""
	})).Return("$answer", nil).Once()

	err := f.d.Answer(context.Background(), request(sess, freeText("$q", "Bonjour")))

	require.NoError(t, err)
	assert.Equal(t, 2, sess.HistoryDepth, "user turn plus assistant turn")
	assert.Equal(t, now, sess.LastActivity)
	assert.Equal(t, []string{"chunk-1"}, sess.LastSources)
	assert.Equal(t, []string{user}, f.usage.senders)
	f.chat.AssertCalled(t, "SetTyping", mock.Anything, roomID, true, dispatch.DefaultTypingTimeout)
	f.chat.AssertCalled(t, "SetTyping", mock.Anything, roomID, false, dispatch.DefaultTypingTimeout)
	f.chat.AssertExpectations(t)
}

func TestAnswer_GenerateFailure(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := newSession()
	sess.HistoryDepth = 4
	sess.LastActivity = now.Add(-time.Minute)

	history := &chat.HistoryPage{Events: []*models.Event{}}
	f.chat.On("FetchHistory", mock.Anything, roomID, mock.Anything).Return(history, nil)
	f.answers.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domainerrors.NewUpstreamError("albert", "model overloaded", errors.New("503")))
	f.chat.On("SendMessage", mock.Anything, roomID, withBody(failedText)).Return("$failed", nil).Once()
	f.chat.On("SendMessage", mock.Anything, opsRoomID, mock.MatchedBy(func(m chat.OutboundMessage) bool {
		return strings.Contains(m.Body, "model overloaded")
	})).Return("$ops", nil).Once()

	err := f.d.Answer(context.Background(), request(sess, freeText("$q", "Question")))

	require.NoError(t, err)
	assert.Equal(t, 4, sess.HistoryDepth)
	assert.Empty(t, f.usage.senders)
	f.chat.AssertExpectations(t)
	f.chat.AssertNumberOfCalls(t, "SendMessage", 2)
	f.chat.AssertCalled(t, "SetTyping", mock.Anything, roomID, false, mock.Anything)
}

func TestAnswer_GenerateFailureWithoutOperatorsRoom(t *testing.T) {
	f := newDispatcherFixtureWithErrorsRoom(t, "")
	sess := newSession()

	f.answers.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	f.chat.On("SendMessage", mock.Anything, roomID, withBody(failedText)).Return("$failed", nil).Once()

	require.NoError(t, f.d.Answer(context.Background(), request(sess, freeText("$q", "Question"))))

	assert.Equal(t, 0, sess.HistoryDepth)
	f.chat.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestAnswer_FailureDetailsFollowConfiguredRoom(t *testing.T) {
	f := newDispatcherFixture(t)
	var sess models.UserSession
	stored := `{"sender":"` + user + `","model":"AgentPublic/albertlight-7b","mode":"rag","withHistory":true,"errorsRoomId":"!retired:agent.tchap.gouv.fr"}`
	require.NoError(t, json.Unmarshal([]byte(stored), &sess))

	f.answers.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	f.chat.On("SendMessage", mock.Anything, roomID, withBody(failedText)).Return("$failed", nil).Once()
	f.chat.On("SendMessage", mock.Anything, opsRoomID, mock.Anything).Return("$ops", nil).Once()

	require.NoError(t, f.d.Answer(context.Background(), request(&sess, freeText("$q", "Question"))))

	f.chat.AssertExpectations(t)
	f.chat.AssertNotCalled(t, "SendMessage", mock.Anything, "!retired:agent.tchap.gouv.fr", mock.Anything)
}

func TestAnswer_SendRetriedOnce(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := newSession()

	f.answers.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(&answer.Answer{Text: "ok"}, nil)
	f.chat.On("SendMessage", mock.Anything, roomID, withBody("ok")).Return("", errors.New("connection reset")).Once()
	f.chat.On("SendMessage", mock.Anything, roomID, withBody("ok")).Return("$answer", nil).Once()

	require.NoError(t, f.d.Answer(context.Background(), request(sess, freeText("$q", "Question"))))

	assert.Equal(t, 2, sess.HistoryDepth)
	f.chat.AssertNumberOfCalls(t, "SendMessage", 2)
}

func TestAnswer_SendFailsTwice(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := newSession()

	f.answers.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(&answer.Answer{Text: "ok"}, nil)
	f.chat.On("SendMessage", mock.Anything, roomID, mock.Anything).Return("", errors.New("connection reset"))

	require.NoError(t, f.d.Answer(context.Background(), request(sess, freeText("$q", "Question"))))

	assert.Equal(t, 0, sess.HistoryDepth)
	assert.Empty(t, f.usage.senders)
	f.chat.AssertNumberOfCalls(t, "SendMessage", 2)
}

func TestAnswer_ReplyIsLinked(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := newSession()
	sess.HistoryDepth = 6

	root := &models.Event{ID: "$root", RoomID: roomID, Sender: botID, Kind: models.KindText, MsgType: models.MsgTypeText, Body: "Réponse précédente"}
	reply := freeText("$q", "> <@albert> Réponse précédente\n\nPourquoi ?")
	reply.ReplyTo = "$root"

	f.chat.On("FetchEvent", mock.Anything, roomID, "$root").Return(root, nil)
	f.answers.On("Generate", mock.Anything, []models.Turn{
		{Role: models.RoleAssistant, Content: "Réponse précédente"},
		{Role: models.RoleUser, Content: "Pourquoi ?"},
	}, mock.Anything).Return(&answer.Answer{Text: "Parce que."}, nil)
	f.chat.On("SendMessage", mock.Anything, roomID, mock.MatchedBy(func(m chat.OutboundMessage) bool {
		return m.Body == "Parce que." && m.ReplyTo == "$q"
	})).Return("$answer", nil).Once()

	require.NoError(t, f.d.Answer(context.Background(), request(sess, reply)))

	assert.Equal(t, 6, sess.HistoryDepth)
	assert.True(t, sess.LastActivity.Before(now))
	f.chat.AssertExpectations(t)
}

func TestAnswer_ObsoleteConversationReset(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := newSession()
	sess.HistoryDepth = 8
	sess.LastActivity = now.Add(-15*time.Minute - time.Second)

	f.chat.On("SendMessage", mock.Anything, roomID, withBody(resetText)).Return("$reset", nil).Once()
	f.answers.On("Generate", mock.Anything, []models.Turn{models.NewUserTurn("Nouvelle question")}, mock.Anything).
		Return(&answer.Answer{Text: "Réponse"}, nil)
	f.chat.On("SendMessage", mock.Anything, roomID, withBody("Réponse")).Return("$answer", nil).Once()

	require.NoError(t, f.d.Answer(context.Background(), request(sess, freeText("$q", "Nouvelle question"))))

	assert.Equal(t, 2, sess.HistoryDepth)
	f.chat.AssertExpectations(t)
	f.chat.AssertNotCalled(t, "FetchHistory", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswer_HistoryDisabled(t *testing.T) {
	f := newDispatcherFixture(t)
	sess := newSession()
	sess.WithHistory = false

	f.answers.On("Generate", mock.Anything, []models.Turn{models.NewUserTurn("Question")}, mock.Anything).
		Return(&answer.Answer{Text: "Réponse"}, nil)
	f.chat.On("SendMessage", mock.Anything, roomID, withBody("Réponse")).Return("$answer", nil).Once()

	require.NoError(t, f.d.Answer(context.Background(), request(sess, freeText("$q", "Question"))))

	assert.Equal(t, 0, sess.HistoryDepth)
}

func TestAnswer_UsageFailureIgnored(t *testing.T) {
	f := newDispatcherFixture(t)
	f.usage.err = errors.New("mongo down")
	sess := newSession()

	f.answers.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(&answer.Answer{Text: "Réponse"}, nil)
	f.chat.On("SendMessage", mock.Anything, roomID, withBody("Réponse")).Return("$answer", nil).Once()

	require.NoError(t, f.d.Answer(context.Background(), request(sess, freeText("$q", "Question"))))

	assert.Equal(t, 2, sess.HistoryDepth)
}
