package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"aihealth.app/health-assistant/internal/utils"
)

const (
	DefaultMaxChars = 4000
	userAgent       = "Mozilla/5.0 (compatible; ai-health-backend/1.0; +https://example.org/bot)"
)

// ArticleFetcher downloads an article page and reduces it to plain text.
type ArticleFetcher struct {
	client   *http.Client
	maxChars int
}

func NewArticleFetcher(timeout time.Duration, maxChars int) *ArticleFetcher {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &ArticleFetcher{
		client:   utils.NewHTTPClient(timeout),
		maxChars: maxChars,
	}
}

func (f *ArticleFetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	text, err := ExtractText(resp.Body)
	if err != nil {
		return "", err
	}
	return truncate(text, f.maxChars), nil
}

// ExtractText returns the readable text of an HTML document. Scripts, styles
// and page chrome are dropped; <article> or <main> is preferred over <body>.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form, iframe").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var parts []string
	root.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return collapse(root.Text()), nil
	}
	return strings.Join(parts, "\n"), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
