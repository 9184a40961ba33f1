package core

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/metrics"
)

const (
	StrategyGemini        = "gemini"
	StrategyKnowledgeBase = "knowledge_base"
)

var ErrEmptyAnswer = errors.New("provider returned an empty answer")

// Passage is a piece of retrieved context handed to the generator.
type Passage struct {
	Title string
	URL   string
	Text  string
}

type SourceLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type Answer struct {
	Text     string
	Sources  []SourceLink
	Strategy string
}

type AnswerGenerator interface {
	Answer(ctx context.Context, question string, passages []Passage) (Answer, error)
}

// FallbackGenerator asks the primary generator first and answers from the
// local one whenever the primary fails or comes back empty. It never returns
// the primary's error.
type FallbackGenerator struct {
	primary AnswerGenerator
	local   AnswerGenerator
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewFallbackGenerator(primary, local AnswerGenerator, logger *zap.Logger, m *metrics.Metrics) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, local: local, logger: logger, metrics: m}
}

func (g *FallbackGenerator) Answer(ctx context.Context, question string, passages []Passage) (Answer, error) {
	if g.primary != nil {
		ans, err := g.primary.Answer(ctx, question, passages)
		if err == nil && strings.TrimSpace(ans.Text) != "" {
			return ans, nil
		}
		if err == nil {
			err = ErrEmptyAnswer
		}
		g.logger.Warn("Provider answer failed, using knowledge base", zap.Error(err))
		g.metrics.ProviderFallback()
	}
	return g.local.Answer(ctx, question, passages)
}
