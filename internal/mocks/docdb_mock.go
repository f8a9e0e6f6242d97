// Package mocks provides mock implementations for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/assistant-bot/internal/core/docdb"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// MockUsersCollection is a mock implementation of docdb.UsersCollection.
type MockUsersCollection struct {
	mock.Mock
}

// FetchRecords returns the records matching the filter.
func (m *MockUsersCollection) FetchRecords(ctx context.Context, filter *docdb.UserFilter) ([]*models.AllowListEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AllowListEntry), args.Error(1)
}

// InsertRecords adds new records.
func (m *MockUsersCollection) InsertRecords(ctx context.Context, records []*models.AllowListEntry) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// UpdateRecords updates existing records.
func (m *MockUsersCollection) UpdateRecords(ctx context.Context, records []*models.AllowListEntry) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// EnsureIndexes creates necessary indexes.
func (m *MockUsersCollection) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockDocDBClient is a mock implementation of docdb.Client.
type MockDocDBClient struct {
	mock.Mock
	users *MockUsersCollection
}

// NewMockDocDBClient creates a new MockDocDBClient with a users collection mock.
func NewMockDocDBClient() *MockDocDBClient {
	return &MockDocDBClient{users: &MockUsersCollection{}}
}

// Users returns the users collection mock.
func (m *MockDocDBClient) Users() docdb.UsersCollection {
	return m.users
}

// GetMockUsers returns the users collection mock for setting expectations.
func (m *MockDocDBClient) GetMockUsers() *MockUsersCollection {
	return m.users
}

// Ping checks the database connection.
func (m *MockDocDBClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// EnsureIndexes creates the indexes.
func (m *MockDocDBClient) EnsureIndexes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the database connection.
func (m *MockDocDBClient) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
