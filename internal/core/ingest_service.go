package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/metrics"
	"aihealth.app/health-assistant/internal/store"
)

type FeedItem struct {
	Title string
	URL   string
}

// DailyFeed stands in for a real medical news feed.
var DailyFeed = []FeedItem{
	{Title: "New diabetes guidance", URL: "https://example.org/diabetes-guidance"},
	{Title: "Heart health checklist", URL: "https://example.org/heart-health"},
}

type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

type Archiver interface {
	Archive(ctx context.Context, c store.Content, summary, body string) error
}

type Annotator interface {
	Annotate(ctx context.Context, title, url, body string) (tags []string, summary string, err error)
}

type ContentIndexer interface {
	Index(ctx context.Context, items []store.Content) int
}

type IngestService struct {
	repo      store.Repository
	feed      []FeedItem
	kb        *KnowledgeBase
	annotator Annotator      // optional, tags come from the knowledge base without it
	fetcher   Fetcher        // optional
	archiver  Archiver       // optional
	indexer   ContentIndexer // optional
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type IngestOption func(*IngestService)

func WithAnnotator(a Annotator) IngestOption    { return func(s *IngestService) { s.annotator = a } }
func WithFetcher(f Fetcher) IngestOption        { return func(s *IngestService) { s.fetcher = f } }
func WithArchiver(a Archiver) IngestOption      { return func(s *IngestService) { s.archiver = a } }
func WithIndexer(i ContentIndexer) IngestOption { return func(s *IngestService) { s.indexer = i } }
func WithFeed(items []FeedItem) IngestOption    { return func(s *IngestService) { s.feed = items } }

func NewIngestService(repo store.Repository, kb *KnowledgeBase, m *metrics.Metrics, logger *zap.Logger, opts ...IngestOption) *IngestService {
	s := &IngestService{
		repo:    repo,
		feed:    DailyFeed,
		kb:      kb,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestDaily annotates every feed item and appends it to the content
// collection. Fetch, archive and annotation problems are logged and worked
// around; only a store failure aborts the run.
func (s *IngestService) IngestDaily(ctx context.Context) (int, error) {
	items := make([]store.Content, 0, len(s.feed))
	summaries := make([]string, 0, len(s.feed))
	bodies := make([]string, 0, len(s.feed))

	for _, it := range s.feed {
		var body string
		if s.fetcher != nil {
			text, err := s.fetcher.FetchText(ctx, it.URL)
			if err != nil {
				s.logger.Warn("Failed to fetch article, annotating from title", zap.String("url", it.URL), zap.Error(err))
			}
			body = text
		}

		tags, summary := s.annotate(ctx, it, body)
		now := s.now()
		items = append(items, store.Content{
			ContentID:   uuid.NewString(),
			Title:       it.Title,
			URL:         it.URL,
			Tags:        tags,
			PublishedAt: now,
			IngestedAt:  now,
		})
		summaries = append(summaries, summary)
		bodies = append(bodies, body)
	}

	if err := s.repo.AddContent(ctx, items...); err != nil {
		return 0, fmt.Errorf("failed to store ingested content: %w", err)
	}

	if s.archiver != nil {
		for i, c := range items {
			if err := s.archiver.Archive(ctx, c, summaries[i], bodies[i]); err != nil {
				s.logger.Warn("Failed to archive article", zap.String("content_id", c.ContentID), zap.Error(err))
			}
		}
	}
	if s.indexer != nil {
		s.indexer.Index(ctx, items)
	}

	s.metrics.ContentIngested(len(items))
	s.logger.Info("Ingested daily content", zap.Int("added", len(items)))
	return len(items), nil
}

func (s *IngestService) annotate(ctx context.Context, it FeedItem, body string) ([]string, string) {
	if s.annotator != nil {
		tags, summary, err := s.annotator.Annotate(ctx, it.Title, it.URL, body)
		if err == nil && len(tags) > 0 {
			return tags, summary
		}
		if err == nil {
			err = fmt.Errorf("no hashtags in annotation")
		}
		s.logger.Warn("Annotation failed, tagging from knowledge base", zap.String("title", it.Title), zap.Error(err))
	}
	return s.kb.Tags(it.Title + " " + body), it.Title
}
