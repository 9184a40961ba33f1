package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"aihealth.app/health-assistant/internal/store"
	"aihealth.app/health-assistant/internal/utils"
)

const (
	NumRelevantPassages = 3   // Number of passages handed to the generator
	SimilarityThreshold = 0.7 // Minimum similarity score to consider content relevant
)

type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

type indexedContent struct {
	passage   Passage
	embedding []float32
}

// ContentRetriever keeps an in-memory embedding index of the Content
// collection and returns the passages closest to a question.
type ContentRetriever struct {
	embedder Embedder
	logger   *zap.Logger

	mu    sync.RWMutex
	items []indexedContent
}

func NewContentRetriever(embedder Embedder, logger *zap.Logger) *ContentRetriever {
	return &ContentRetriever{embedder: embedder, logger: logger}
}

// ContentPassage is the text that gets embedded and shown to the model for a
// Content row.
func ContentPassage(c store.Content) Passage {
	text := c.Title
	if len(c.Tags) > 0 {
		text += "\nTags: " + strings.Join(c.Tags, ", ")
	}
	return Passage{Title: c.Title, URL: c.URL, Text: text}
}

// Index embeds items and adds them to the index. Items that fail to embed are
// logged and skipped.
func (r *ContentRetriever) Index(ctx context.Context, items []store.Content) int {
	added := make([]indexedContent, 0, len(items))
	for _, c := range items {
		p := ContentPassage(c)
		emb, err := r.embedder.GetEmbedding(ctx, p.Text)
		if err != nil {
			r.logger.Warn("Skipping content without embedding", zap.String("content_id", c.ContentID), zap.Error(err))
			continue
		}
		added = append(added, indexedContent{passage: p, embedding: emb})
	}

	r.mu.Lock()
	r.items = append(r.items, added...)
	total := len(r.items)
	r.mu.Unlock()

	r.logger.Info("Indexed content for retrieval", zap.Int("added", len(added)), zap.Int("total", total))
	return len(added)
}

// IndexAll loads every Content row from the repository and indexes it.
func (r *ContentRetriever) IndexAll(ctx context.Context, repo store.Repository) error {
	for page := 1; ; page++ {
		items, err := repo.ListContent(ctx, store.PageQuery{Page: page, Limit: store.MaxLimit})
		if err != nil {
			return fmt.Errorf("failed to load content for retrieval: %w", err)
		}
		r.Index(ctx, items)
		if len(items) < store.MaxLimit {
			return nil
		}
	}
}

func (r *ContentRetriever) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *ContentRetriever) Retrieve(ctx context.Context, question string) ([]Passage, error) {
	r.mu.RLock()
	items := r.items
	r.mu.RUnlock()

	if len(items) == 0 {
		return nil, nil
	}

	queryEmbedding, err := r.embedder.GetEmbedding(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to get query embedding: %w", err)
	}

	candidates := make([][]float32, len(items))
	for i, it := range items {
		candidates[i] = it.embedding
	}
	ranked := utils.RankBySimilarity(queryEmbedding, candidates, SimilarityThreshold, NumRelevantPassages)

	passages := make([]Passage, 0, len(ranked))
	for _, s := range ranked {
		passages = append(passages, items[s.Index].passage)
	}
	r.logger.Debug("Retrieved passages", zap.Int("count", len(passages)))
	return passages, nil
}
