// AngelaMos | 2026
// client.go

package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/iamisam/codeplay-backend/internal/config"
	"github.com/iamisam/codeplay-backend/internal/core"
)

const (
	tracerName   = "judge"
	resultFields = "token,status,stdout,stderr,time,memory"
	maxBodyBytes = 4 << 20
)

type Client struct {
	baseURL string
	apiKey  string
	apiHost string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg config.JudgeConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		apiHost: cfg.APIHost,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
	}
}

// SubmitBatch returns one tracking token per submission, in order.
func (c *Client) SubmitBatch(
	ctx context.Context,
	submissions []Submission,
) ([]string, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "judge.submit_batch",
		attribute.Int("judge.batch_size", len(submissions)),
	)
	defer span.End()

	payload, err := json.Marshal(batchRequest{Submissions: submissions})
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	var tokens []tokenResponse
	err = c.do(
		ctx,
		http.MethodPost,
		"/submissions/batch?base64_encoded=false",
		bytes.NewReader(payload),
		&tokens,
	)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("submit batch: %w", err)
	}

	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t.Token == "" {
			return nil, fmt.Errorf("submit batch: empty token: %w", core.ErrUpstream)
		}
		out = append(out, t.Token)
	}

	if len(out) != len(submissions) {
		return nil, fmt.Errorf(
			"submit batch: got %d tokens for %d submissions: %w",
			len(out), len(submissions), core.ErrUpstream,
		)
	}

	return out, nil
}

func (c *Client) GetBatch(ctx context.Context, tokens []string) ([]Result, error) {
	ctx, span := core.StartSpan(ctx, tracerName, "judge.get_batch",
		attribute.Int("judge.batch_size", len(tokens)),
	)
	defer span.End()

	q := url.Values{}
	q.Set("tokens", strings.Join(tokens, ","))
	q.Set("base64_encoded", "false")
	q.Set("fields", resultFields)

	var out batchResultResponse
	if err := c.do(ctx, http.MethodGet, "/submissions/batch?"+q.Encode(), nil, &out); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("get batch: %w", err)
	}

	if len(out.Submissions) != len(tokens) {
		return nil, fmt.Errorf(
			"get batch: got %d results for %d tokens: %w",
			len(out.Submissions), len(tokens), core.ErrUpstream,
		)
	}

	return out.Submissions, nil
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	body io.Reader,
	dest any,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for judge rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.apiKey)
	}
	if c.apiHost != "" {
		req.Header.Set("X-RapidAPI-Host", c.apiHost)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrUpstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", core.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf(
			"%w: status %d: %s",
			core.ErrUpstream,
			resp.StatusCode,
			truncate(string(raw), 200),
		)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: decode body: %w", core.ErrUpstream, err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
