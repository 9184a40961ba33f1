package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/metrics"
)

// MockAnswerGenerator is a mock implementation of AnswerGenerator
type MockAnswerGenerator struct {
	mock.Mock
}

func (m *MockAnswerGenerator) Answer(ctx context.Context, question string, passages []Passage) (Answer, error) {
	args := m.Called(ctx, question, passages)
	return args.Get(0).(Answer), args.Error(1)
}

func TestFallbackGenerator_UsesPrimary(t *testing.T) {
	primary := new(MockAnswerGenerator)
	primary.On("Answer", mock.Anything, "what is flu?", mock.Anything).
		Return(Answer{Text: "Influenza is...", Strategy: StrategyGemini}, nil)

	gen := NewFallbackGenerator(primary, NewKnowledgeBase(), zap.NewNop(), metrics.New())
	ans, err := gen.Answer(context.Background(), "what is flu?", nil)

	require.NoError(t, err)
	assert.Equal(t, StrategyGemini, ans.Strategy)
	assert.Equal(t, "Influenza is...", ans.Text)
	primary.AssertExpectations(t)
}

func TestFallbackGenerator_MasksProviderError(t *testing.T) {
	primary := new(MockAnswerGenerator)
	primary.On("Answer", mock.Anything, mock.Anything, mock.Anything).
		Return(Answer{}, errors.New("quota exceeded"))

	gen := NewFallbackGenerator(primary, NewKnowledgeBase(), zap.NewNop(), nil)
	ans, err := gen.Answer(context.Background(), "I have a headache", nil)

	require.NoError(t, err)
	assert.Equal(t, StrategyKnowledgeBase, ans.Strategy)
	assert.Contains(t, ans.Text, "Headache")
	assert.NotEmpty(t, ans.Sources)
}

func TestFallbackGenerator_EmptyProviderAnswer(t *testing.T) {
	primary := new(MockAnswerGenerator)
	primary.On("Answer", mock.Anything, mock.Anything, mock.Anything).
		Return(Answer{Text: "   ", Strategy: StrategyGemini}, nil)

	gen := NewFallbackGenerator(primary, NewKnowledgeBase(), zap.NewNop(), nil)
	ans, err := gen.Answer(context.Background(), "anything", nil)

	require.NoError(t, err)
	assert.Equal(t, StrategyKnowledgeBase, ans.Strategy)
	assert.NotEmpty(t, strings.TrimSpace(ans.Text))
}

func TestFallbackGenerator_NoPrimary(t *testing.T) {
	gen := NewFallbackGenerator(nil, NewKnowledgeBase(), zap.NewNop(), nil)
	ans, err := gen.Answer(context.Background(), "fever", nil)

	require.NoError(t, err)
	assert.Equal(t, StrategyKnowledgeBase, ans.Strategy)
}
