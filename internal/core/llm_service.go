package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const (
	answerSystemInstruction = "You are a careful health explainer. Use only the provided context. Cite sources."

	annotateSystemInstruction = "You label medical articles for a health content catalog. " +
		"Reply with 3-6 hashtags on the first line and a 1-sentence summary on the second line."

	answerMaxOutputTokens   int32 = 512
	annotateMaxOutputTokens int32 = 128
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// LLMService talks to Gemini. It answers questions, annotates ingested
// content and embeds text for retrieval.
type LLMService struct {
	client *genai.Client
	cfg    LLMConfig
	logger *zap.Logger
}

func NewLLMService(ctx context.Context, cfg LLMConfig, logger *zap.Logger) (*LLMService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &LLMService{client: client, cfg: cfg, logger: logger}, nil
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			s.logger.Warn("Error closing GenAI client", zap.Error(err))
		} else {
			s.logger.Info("GenAI client closed")
		}
	}
}

func (s *LLMService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	em := s.client.EmbeddingModel(s.cfg.EmbeddingModel)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

func (s *LLMService) Answer(ctx context.Context, question string, passages []Passage) (Answer, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	model := s.client.GenerativeModel(s.cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(answerSystemInstruction)},
	}
	maxTokens := answerMaxOutputTokens
	model.GenerationConfig = genai.GenerationConfig{MaxOutputTokens: &maxTokens}

	resp, err := model.GenerateContent(ctx, genai.Text(BuildAnswerPrompt(question, passages)))
	if err != nil {
		return Answer{}, fmt.Errorf("gemini answer request failed: %w", err)
	}

	text, citations := candidateText(resp)
	if strings.TrimSpace(text) == "" {
		return Answer{}, ErrEmptyAnswer
	}

	sources := citations
	if len(sources) == 0 {
		sources = passageSources(passages)
	}
	return Answer{Text: text, Sources: sources, Strategy: StrategyGemini}, nil
}

// Annotate asks the model for hashtags and a one-line summary of an article.
func (s *LLMService) Annotate(ctx context.Context, title, url, body string) ([]string, string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	model := s.client.GenerativeModel(s.cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(annotateSystemInstruction)},
	}
	temp := float32(0.3)
	maxTokens := annotateMaxOutputTokens
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	if body == "" {
		body = "(not fetched)"
	}
	prompt := fmt.Sprintf("Create 3-6 tags for this medical article and a 1-sentence summary:\nTitle: %s\nURL: %s\nTEXT: %s", title, url, body)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, "", fmt.Errorf("gemini annotate request failed: %w", err)
	}
	text, _ := candidateText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, "", ErrEmptyAnswer
	}
	tags, summary := ParseAnnotation(text)
	return tags, summary, nil
}

// BuildAnswerPrompt renders the single user turn sent with a question.
func BuildAnswerPrompt(question string, passages []Passage) string {
	blocks := make([]string, len(passages))
	for i, p := range passages {
		blocks[i] = fmt.Sprintf("[#%d] TITLE: %s\nURL: %s\nTEXT: %s", i+1, p.Title, p.URL, p.Text)
	}
	return fmt.Sprintf("QUESTION:\n%s\n\nCONTEXT:\n%s\n\nINSTRUCTIONS:\n"+
		"- Answer concisely.\n"+
		"- Include a \"Sources\" list of [#n] with titles + URLs.\n"+
		"- If context is insufficient, say so.",
		question, strings.Join(blocks, "\n---\n"))
}

// ParseAnnotation pulls hashtags (without '#') and the first non-tag line
// out of an annotation reply.
func ParseAnnotation(text string) ([]string, string) {
	matches := hashtagPattern.FindAllString(text, -1)
	tags := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		tag := strings.ToLower(strings.TrimPrefix(m, "#"))
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	var summary string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		summary = strings.TrimSpace(strings.TrimPrefix(line, "Summary:"))
		break
	}
	return tags, summary
}

func candidateText(resp *genai.GenerateContentResponse) (string, []SourceLink) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	cand := resp.Candidates[0]

	var text strings.Builder
	for _, part := range cand.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	var citations []SourceLink
	if cand.CitationMetadata != nil {
		for _, cs := range cand.CitationMetadata.CitationSources {
			if cs.URI == nil || *cs.URI == "" {
				continue
			}
			citations = append(citations, SourceLink{Title: *cs.URI, URL: *cs.URI})
		}
	}
	return text.String(), citations
}

func passageSources(passages []Passage) []SourceLink {
	sources := make([]SourceLink, 0, len(passages))
	for _, p := range passages {
		sources = append(sources, SourceLink{Title: p.Title, URL: p.URL})
	}
	return sources
}
