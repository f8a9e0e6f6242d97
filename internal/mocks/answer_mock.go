package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/assistant-bot/internal/core/answer"
	"github.com/unifiedui/assistant-bot/internal/domain/models"
)

// MockAnswerService is a mock implementation of answer.Service.
type MockAnswerService struct {
	mock.Mock
}

// Generate produces an answer.
func (m *MockAnswerService) Generate(ctx context.Context, turns []models.Turn, params answer.SamplingParams) (*answer.Answer, error) {
	args := m.Called(ctx, turns, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*answer.Answer), args.Error(1)
}

// ListModels returns the model ids.
func (m *MockAnswerService) ListModels(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// ListModes returns the modes of a model.
func (m *MockAnswerService) ListModes(ctx context.Context, model string) ([]string, error) {
	args := m.Called(ctx, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// FetchSources resolves retrieval references.
func (m *MockAnswerService) FetchSources(ctx context.Context, refs []string) ([]answer.Source, error) {
	args := m.Called(ctx, refs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]answer.Source), args.Error(1)
}
