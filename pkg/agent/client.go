// Package agent is an HTTP client for the LangGraph agent service.
//
// The service exposes /invoke and /stream (optionally under an agent id
// path segment), plus /info, /history, /feedback and /health. Every request
// carries "Authorization: Bearer <token>" when a token is configured.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/agentchat/pkg/logger"
)

// DefaultTimeout bounds a whole request, including reading a streamed body.
const DefaultTimeout = 5 * time.Minute

// maxErrorBody caps how much of a non-2xx body is kept in a StatusError.
const maxErrorBody = 64 * 1024

// Config is the explicit configuration of a Client.
type Config struct {
	// BaseURL is the agent service URL, e.g. "http://localhost:8080".
	BaseURL string

	// Token is sent as a bearer token when non-empty.
	Token string

	// Agent selects the agent. Empty uses the service default agent.
	Agent string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides the underlying client. Its Timeout is left as is.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to the agent service.
type Client struct {
	baseURL string
	token   string
	agent   string
	http    *http.Client
	logger  *slog.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("agent service base URL is required")
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing agent service URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("agent service URL must be http or https, got %q", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("agent service URL has no host: %q", base)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		agent:   cfg.Agent,
		http:    httpClient,
		logger:  log,
	}, nil
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Agent returns the configured agent id.
func (c *Client) Agent() string {
	return c.agent
}

// WithAgent returns a copy of c that targets the given agent.
func (c *Client) WithAgent(agent string) *Client {
	cp := *c
	cp.agent = agent
	return &cp
}

// Stream starts a streaming invocation and returns the response body. The
// caller must close it. Non-2xx responses are returned as *StatusError.
func (c *Client) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	resp, err := c.do(ctx, http.MethodPost, c.agentPath("stream"), req)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	c.logger.Debug("agent stream opened",
		"agent", c.agent,
		"content_type", resp.Header.Get("Content-Type"),
	)

	return resp.Body, nil
}

// Invoke runs a non-streaming invocation.
func (c *Client) Invoke(ctx context.Context, req Request) (*InvokeResult, error) {
	body, err := c.roundTrip(ctx, http.MethodPost, c.agentPath("invoke"), req)
	if err != nil {
		return nil, err
	}

	res, err := DecodeInvokeResult(body)
	if err != nil {
		return nil, fmt.Errorf("decoding invoke response: %w", err)
	}
	return res, nil
}

// Info returns the agents and models the service offers.
func (c *Client) Info(ctx context.Context) (*ServiceMetadata, error) {
	var meta ServiceMetadata
	if err := c.getJSON(ctx, http.MethodGet, "/info", nil, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// History returns the messages of a thread.
func (c *Client) History(ctx context.Context, threadID string) (*ChatHistory, error) {
	if threadID == "" {
		return nil, errors.New("thread id is required")
	}

	var hist ChatHistory
	in := map[string]string{"thread_id": threadID}
	if err := c.getJSON(ctx, http.MethodPost, "/history", in, &hist); err != nil {
		return nil, err
	}
	return &hist, nil
}

// Feedback records feedback for a run.
func (c *Client) Feedback(ctx context.Context, fb Feedback) (*FeedbackResponse, error) {
	if fb.RunID == "" || fb.Key == "" {
		return nil, errors.New("feedback requires a run id and a key")
	}

	var out FeedbackResponse
	if err := c.getJSON(ctx, http.MethodPost, "/feedback", fb, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the service health map, e.g. {"status": "ok"}.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	if err := c.getJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) agentPath(op string) string {
	if c.agent == "" {
		return "/" + op
	}
	return "/" + url.PathEscape(c.agent) + "/" + op
}

func (c *Client) getJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := c.roundTrip(ctx, method, path, in)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any) ([]byte, error) {
	resp, err := c.do(ctx, method, path, in)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("agent request", "method", method, "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to agent service: %w", err)
	}
	return resp, nil
}

// checkStatus closes the body and returns a *StatusError for non-2xx responses.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Code: resp.StatusCode, Body: string(body)}
}
