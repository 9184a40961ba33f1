package connector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"aihealth.app/health-assistant/internal/auth"
	"aihealth.app/health-assistant/internal/store"
	"aihealth.app/health-assistant/internal/utils"
)

const jwtTTL = time.Hour

// Page is one response of an ETL list endpoint. Next is 0 when the server
// did not advertise a following page.
type Page struct {
	Rows []json.RawMessage
	Next int
}

// EtlClient talks to the server's bearer-protected /etl routes.
type EtlClient struct {
	baseURL    string
	apiKey     string
	authMode   string
	pageSize   int
	http       *http.Client
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewEtlClient(cfg Config) *EtlClient {
	return &EtlClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		authMode:   cfg.AuthMode,
		pageSize:   cfg.PageSize,
		http:       utils.NewHTTPClient(cfg.Timeout),
		attempts:   cfg.MaxRetries,
		backoff:    cfg.Backoff,
		maxBackoff: cfg.MaxBackoff,
	}
}

func (c *EtlClient) token() (string, error) {
	if c.authMode == AuthJWT {
		return auth.GenerateJWT(c.apiKey, "connector", jwtTTL)
	}
	return c.apiKey, nil
}

func (c *EtlClient) get(ctx context.Context, u string) (*http.Response, error) {
	tok, err := c.token()
	if err != nil {
		return nil, fmt.Errorf("failed to build token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// TestConnection checks the base URL and credentials against /health.
func (c *EtlClient) TestConnection(ctx context.Context) error {
	resp, err := c.get(ctx, c.baseURL+"/health")
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("connection test failed: status %d", resp.StatusCode)
	}
	return nil
}

// FetchPage reads one page of a resource. Server errors and transport
// failures are retried with backoff; client errors are not.
func (c *EtlClient) FetchPage(ctx context.Context, res store.Resource, since string, page int) (Page, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(c.pageSize))
	if since != "" {
		params.Set("since", since)
	}
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, res, params.Encode())

	var out Page
	err := utils.Retry(ctx, c.attempts, c.backoff, c.maxBackoff, func() error {
		p, err := c.fetchOnce(ctx, u)
		if err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return Page{}, fmt.Errorf("fetch %s page %d: %w", res, page, err)
	}
	return out, nil
}

func (c *EtlClient) fetchOnce(ctx context.Context, u string) (Page, error) {
	resp, err := c.get(ctx, u)
	if err != nil {
		return Page{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, fmt.Errorf("failed to read body: %w", err)
	}
	if resp.StatusCode >= 500 {
		return Page{}, fmt.Errorf("server error: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Page{}, utils.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return Page{}, utils.Permanent(fmt.Errorf("expected a JSON list from %s: %w", u, err))
	}
	if rows == nil {
		// A literal null decodes without error.
		return Page{}, utils.Permanent(fmt.Errorf("expected a JSON list from %s, got null", u))
	}

	p := Page{Rows: rows}
	if next := resp.Header.Get("X-Next-Page"); next != "" {
		n, err := strconv.Atoi(next)
		if err != nil || n < 1 {
			return Page{}, utils.Permanent(fmt.Errorf("invalid X-Next-Page %q", next))
		}
		p.Next = n
	}
	return p, nil
}
