// AngelaMos | 2026
// client.go

package leetcode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
)

const (
	tracerName   = "leetcode"
	maxBodyBytes = 4 << 20
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.LeetCodeConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) GetUser(ctx context.Context, username string) (*Profile, error) {
	var out Profile
	if err := c.get(ctx, "/user/"+url.PathEscape(username), &out); err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return &out, nil
}

func (c *Client) GetDaily(ctx context.Context) (*ProblemRef, error) {
	var out dailyResponse
	if err := c.get(ctx, "/daily", &out); err != nil {
		return nil, fmt.Errorf("get daily problem: %w", err)
	}
	if out.Question.TitleSlug == "" {
		return nil, fmt.Errorf("get daily problem: empty slug: %w", core.ErrUpstream)
	}
	return &out.Question, nil
}

func (c *Client) Search(ctx context.Context, query string) ([]ProblemRef, error) {
	var raw []searchResult
	path := "/search?query=" + url.QueryEscape(query)
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("search problems: %w", err)
	}

	results := make([]ProblemRef, 0, len(raw))
	for _, r := range raw {
		results = append(results, ProblemRef{Title: r.Title, TitleSlug: r.TitleSlug})
	}
	return results, nil
}

func (c *Client) GetProblem(ctx context.Context, slug string) (ProblemDetails, error) {
	var out json.RawMessage
	if err := c.get(ctx, "/problem/"+url.PathEscape(slug), &out); err != nil {
		return nil, fmt.Errorf("get problem %s: %w", slug, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	ctx, span := core.StartSpan(ctx, tracerName, "leetcode.get",
		attribute.String("http.path", path),
	)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("%w: %w", core.ErrUpstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return core.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		err := fmt.Errorf("%w: status %d", core.ErrUpstream, resp.StatusCode)
		core.SetSpanError(ctx, err)
		return err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", core.ErrUpstream, err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("%w: decode body: %w", core.ErrUpstream, err)
	}

	return nil
}
