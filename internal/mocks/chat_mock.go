package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/assistant-bot/internal/core/chat"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// MockChatClient is a mock implementation of chat.Client.
type MockChatClient struct {
	mock.Mock
}

// UserID returns the bot identity.
func (m *MockChatClient) UserID() string {
	args := m.Called()
	return args.String(0)
}

// SendMessage sends a message.
func (m *MockChatClient) SendMessage(ctx context.Context, roomID string, message chat.OutboundMessage) (string, error) {
	args := m.Called(ctx, roomID, message)
	return args.String(0), args.Error(1)
}

// SetTyping sets the typing indicator.
func (m *MockChatClient) SetTyping(ctx context.Context, roomID string, typing bool, timeout time.Duration) error {
	args := m.Called(ctx, roomID, typing, timeout)
	return args.Error(0)
}

// FetchHistory returns a page of history.
func (m *MockChatClient) FetchHistory(ctx context.Context, roomID string, opts chat.HistoryOptions) (*chat.HistoryPage, error) {
	args := m.Called(ctx, roomID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.HistoryPage), args.Error(1)
}

// FetchEvent returns a single event.
func (m *MockChatClient) FetchEvent(ctx context.Context, roomID, eventID string) (*models.Event, error) {
	args := m.Called(ctx, roomID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

// JoinRoom joins a room.
func (m *MockChatClient) JoinRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// OnEvent registers an event handler.
func (m *MockChatClient) OnEvent(kind models.EventKind, handler chat.EventHandler) {
	m.Called(kind, handler)
}
