package core

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/metrics"
	"aihealth.app/health-assistant/internal/store"
)

var ErrEmptyQuestion = errors.New("question is required")

const (
	LiveEventAsk      = "ask"
	LiveEventFeedback = "feedback"

	// defaultSourceDomain is recorded for links without a host, such as "#prevention".
	defaultSourceDomain = "health-assistant"

	userHashAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Broadcaster fans live events out to dashboard subscribers. Implementations
// must not block.
type Broadcaster interface {
	Broadcast(kind string, payload any)
}

type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]Passage, error)
}

type AskResult struct {
	Answer  string       `json:"answer"`
	Sources []SourceLink `json:"sources"`
	EventID string       `json:"event_id"`
}

type FeedbackUpdate struct {
	EventID  string `json:"event_id"`
	ThumbsUp bool   `json:"thumbs_up"`
}

type AssistantService struct {
	repo        store.Repository
	generator   AnswerGenerator
	retriever   Retriever   // optional
	broadcaster Broadcaster // optional
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewAssistantService(repo store.Repository, gen AnswerGenerator, retriever Retriever, b Broadcaster, m *metrics.Metrics, logger *zap.Logger) *AssistantService {
	return &AssistantService{
		repo:        repo,
		generator:   gen,
		retriever:   retriever,
		broadcaster: b,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Ask answers a question and records one event, the user and assistant
// messages, and one source row per returned link.
func (s *AssistantService) Ask(ctx context.Context, question string) (*AskResult, error) {
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	var passages []Passage
	if s.retriever != nil {
		p, err := s.retriever.Retrieve(ctx, question)
		if err != nil {
			// Answer without context rather than failing the request.
			s.logger.Warn("Failed to retrieve context, proceeding without it", zap.Error(err))
		}
		passages = p
	}

	start := time.Now()
	ans, err := s.generator.Answer(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}
	latency := time.Since(start)
	if ans.Sources == nil {
		ans.Sources = []SourceLink{}
	}

	ex, err := s.buildExchange(question, ans, latency)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RecordExchange(ctx, ex); err != nil {
		return nil, fmt.Errorf("failed to record exchange: %w", err)
	}

	s.metrics.ObserveAsk(ans.Strategy, latency)
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(LiveEventAsk, ex.Event)
	}
	s.logger.Debug("Answered question",
		zap.String("event_id", ex.Event.EventID),
		zap.String("strategy", ans.Strategy),
		zap.Int("sources", len(ans.Sources)),
		zap.Duration("latency", latency))

	return &AskResult{Answer: ans.Text, Sources: ans.Sources, EventID: ex.Event.EventID}, nil
}

func (s *AssistantService) buildExchange(question string, ans Answer, latency time.Duration) (*store.Exchange, error) {
	userHash, err := NewUserHash()
	if err != nil {
		return nil, err
	}

	createdAt := s.now()
	eventID := uuid.NewString()
	answerLen := utf8.RuneCountInString(ans.Text)

	ex := &store.Exchange{
		Event: store.Event{
			EventID:      eventID,
			UserHash:     userHash,
			Question:     question,
			AnswerLen:    answerLen,
			LatencyMS:    latency.Milliseconds(),
			SourcesCount: len(ans.Sources),
			CreatedAt:    createdAt,
		},
		Messages: []store.Message{
			{
				MessageID: uuid.NewString(),
				EventID:   eventID,
				Role:      store.RoleUser,
				Text:      question,
				Tokens:    utf8.RuneCountInString(question),
				CreatedAt: createdAt,
			},
			{
				MessageID: uuid.NewString(),
				EventID:   eventID,
				Role:      store.RoleAssistant,
				Text:      ans.Text,
				Tokens:    answerLen / 4,
				CreatedAt: createdAt,
			},
		},
		Sources: make([]store.Source, 0, len(ans.Sources)),
	}

	for i, src := range ans.Sources {
		ex.Sources = append(ex.Sources, store.Source{
			SourceID:  uuid.NewString(),
			EventID:   eventID,
			Title:     src.Title,
			URL:       src.URL,
			Domain:    SourceDomain(src.URL),
			Rank:      i + 1,
			CreatedAt: createdAt,
		})
	}
	return ex, nil
}

// Feedback overwrites the thumbs_up vote of an event. Unknown ids yield
// store.ErrNotFound.
func (s *AssistantService) Feedback(ctx context.Context, eventID string, thumbsUp bool) error {
	if err := s.repo.SetThumbsUp(ctx, eventID, thumbsUp); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	s.metrics.Feedback(thumbsUp)
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(LiveEventFeedback, FeedbackUpdate{EventID: eventID, ThumbsUp: thumbsUp})
	}
	return nil
}

// SourceDomain is the host of rawURL, or "health-assistant" when there is none.
func SourceDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return defaultSourceDomain
	}
	return strings.ToLower(u.Hostname())
}

// NewUserHash returns an anonymous id of the form "u_" + 8 lowercase
// alphanumerics.
func NewUserHash() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate user hash: %w", err)
	}
	for i, b := range buf {
		buf[i] = userHashAlphabet[int(b)%len(userHashAlphabet)]
	}
	return "u_" + string(buf), nil
}
