package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qepting91/reddit-commenter/internal/config"
	"github.com/qepting91/reddit-commenter/internal/domain"
	"golang.org/x/time/rate"
)

// Client talks to the OAuth Reddit API with bearer tokens from Credentials
type Client struct {
	httpClient *http.Client
	creds      *Credentials
	limiter    *rate.Limiter
	baseURL    string
	subreddit  string
	userAgent  string
	logger     *slog.Logger
}

// NewClient builds a Client for one community. timeout bounds every request.
func NewClient(ctx context.Context, cfg config.Reddit, timeout time.Duration, logger *slog.Logger) *Client {
	hc := &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{userAgent: cfg.UserAgent, base: http.DefaultTransport},
	}

	perMin := cfg.RequestsPerMin
	if perMin <= 0 {
		perMin = 60
	}

	return &Client{
		httpClient: hc,
		creds:      NewCredentials(ctx, cfg, hc),
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		subreddit:  cfg.Subreddit,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
}

// Listing fetches one page of the community listing
func (c *Client) Listing(ctx context.Context, opts domain.ListOptions) (domain.Page, error) {
	sort := opts.Sort
	if sort == "" {
		sort = "hot"
	}
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	if sort == "top" && opts.TimeWindow != "" {
		q.Set("t", opts.TimeWindow)
	}
	endpoint := fmt.Sprintf("%s/r/%s/%s?%s", c.baseURL, url.PathEscape(c.subreddit), sort, q.Encode())

	var resp listingResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return domain.Page{}, fmt.Errorf("fetch %s listing: %w", sort, err)
	}

	page := domain.Page{After: resp.Data.After}
	for _, child := range resp.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		page.Posts = append(page.Posts, child.Data.toDomain())
	}
	c.logger.Debug("Listing fetched", "sort", sort, "posts", len(page.Posts), "after", page.After)
	return page, nil
}

// TopComments fetches up to limit top-level comments sorted by score
func (c *Client) TopComments(ctx context.Context, postID string, limit int) ([]domain.Comment, error) {
	q := url.Values{}
	q.Set("sort", "top")
	q.Set("depth", "1")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	endpoint := fmt.Sprintf("%s/comments/%s?%s", c.baseURL, url.PathEscape(postID), q.Encode())

	var resp []commentListing
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch comments for %s: %w", postID, err)
	}
	if len(resp) < 2 {
		return nil, fmt.Errorf("fetch comments for %s: unexpected response shape", postID)
	}

	var comments []domain.Comment
	for _, child := range resp[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		comments = append(comments, domain.Comment{
			ID:     child.Data.ID,
			Author: child.Data.Author,
			Body:   child.Data.Body,
			Score:  child.Data.Score,
		})
		if limit > 0 && len(comments) == limit {
			break
		}
	}
	return comments, nil
}

// SubmitComment replies to fullName and returns the new comment's fullname.
// A 200 response can still carry errors, so both halves of the payload are
// checked.
func (c *Client) SubmitComment(ctx context.Context, fullName, text string) (string, error) {
	tok, err := c.creds.UserToken()
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", fullName)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/comment", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp submitResponse
	if err := c.do(req, tok, &resp); err != nil {
		return "", fmt.Errorf("submit comment on %s: %w", fullName, err)
	}
	if len(resp.JSON.Errors) > 0 {
		return "", fmt.Errorf("submit comment on %s: %s", fullName, formatAPIErrors(resp.JSON.Errors))
	}
	for _, thing := range resp.JSON.Data.Things {
		if thing.Kind == "t1" && thing.Data.Name != "" {
			return thing.Data.Name, nil
		}
	}
	return "", fmt.Errorf("submit comment on %s: response contained no created comment", fullName)
}

func (c *Client) get(ctx context.Context, endpoint string, v any) error {
	tok, err := c.creds.AppToken()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, tok, v)
}

func (c *Client) do(req *http.Request, token string, v any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	c.logger.Debug("HTTP request completed",
		"method", req.Method,
		"path", req.URL.Path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type userAgentTransport struct {
	userAgent string
	base      http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
