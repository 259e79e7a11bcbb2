package adobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/creativepipe/cap/pkg/ratelimit"
)

// Job status values Adobe's async services report.
const (
	statusPending    = "pending"
	statusRunning    = "running"
	statusProcessing = "processing"
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
)

// Error snippets and response bodies are capped to keep logs and memory
// bounded when a service misbehaves.
const (
	maxResponseBody = 10 << 20
	maxErrorSnippet = 256
)

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient   *http.Client
	tokens       oauth2.TokenSource
	log          *slog.Logger
	pollInterval time.Duration
	maxAttempts  int
}

// WithHTTPClient sets a custom HTTP client for API and token requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = client }
}

// WithTokenSource replaces the IMS flow with a pre-built token source.
// Useful for testing.
func WithTokenSource(ts oauth2.TokenSource) ClientOption {
	return func(o *clientOptions) { o.tokens = ts }
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(o *clientOptions) { o.log = log }
}

// WithPollInterval overrides the configured delay between status polls.
func WithPollInterval(d time.Duration) ClientOption {
	return func(o *clientOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxPollAttempts overrides the configured poll attempt budget.
func WithMaxPollAttempts(n int) ClientOption {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// Client is the HTTP core shared by the Firefly and Photoshop clients:
// IMS-authenticated requests plus async job submission and polling. Every
// request passes through the rate limit resource the client was built for.
type Client struct {
	httpClient   *http.Client
	tokens       oauth2.TokenSource
	apiKey       string
	limits       *ratelimit.Registry
	resource     string
	log          *slog.Logger
	pollInterval time.Duration
	maxAttempts  int
}

// NewClient builds a client for one Adobe service. scope selects the IMS
// scopes for its tokens and resource the rate limit pool its calls draw
// from. A nil registry leaves calls ungated.
func NewClient(ctx context.Context, cfg Config, scope, resource string, limits *ratelimit.Registry, opts ...ClientOption) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := &clientOptions{
		pollInterval: cfg.PollInterval(),
		maxAttempts:  cfg.MaxPollAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.maxAttempts <= 0 {
		o.maxAttempts = 120
	}

	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout()}
	}
	log := o.log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	tokens := o.tokens
	if tokens == nil {
		tokens = newTokenSource(ctx, cfg, scope, limits, httpClient, log)
	}

	return &Client{
		httpClient:   httpClient,
		tokens:       tokens,
		apiKey:       cfg.ClientID,
		limits:       limits,
		resource:     resource,
		log:          log,
		pollInterval: o.pollInterval,
		maxAttempts:  o.maxAttempts,
	}, nil
}

// acquire gates an API call on this service's rate limit resource.
func (c *Client) acquire(ctx context.Context) error {
	if c.limits == nil {
		return nil
	}
	_, err := c.limits.AcquireOrWait(ctx, c.resource)
	return err
}

func (c *Client) do(ctx context.Context, method, url string, payload any) (json.RawMessage, error) {
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("x-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: %s %s returned %d: %s", ErrUnexpectedStatus, method, url, resp.StatusCode, snippet(raw))
	}
	return raw, nil
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorSnippet {
		return s[:maxErrorSnippet] + "..."
	}
	return s
}

// SubmitJob POSTs payload to url and returns the status URL for polling.
func (c *Client) SubmitJob(ctx context.Context, url string, payload any) (string, error) {
	raw, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return "", err
	}

	var sub jobSubmission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return "", fmt.Errorf("decode job response: %w", err)
	}

	statusURL := sub.statusURL(url)
	if statusURL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoStatusURL, url)
	}

	c.log.DebugContext(ctx, "job submitted", slog.String("status_url", statusURL))
	return statusURL, nil
}

type jobSubmission struct {
	StatusURL string   `json:"statusUrl"`
	Href      string   `json:"href"`
	JobID     string   `json:"jobId"`
	Links     jobLinks `json:"_links"`
}

type jobLinks struct {
	Self   jobLink `json:"self"`
	Status jobLink `json:"status"`
}

type jobLink struct {
	Href string `json:"href"`
}

// statusURL resolves the polling URL from the fields Adobe's services
// variously use. submitURL seeds the bare jobId fallback.
func (s jobSubmission) statusURL(submitURL string) string {
	switch {
	case s.StatusURL != "":
		return s.StatusURL
	case s.Links.Status.Href != "":
		return s.Links.Status.Href
	case s.Links.Self.Href != "":
		return s.Links.Self.Href
	case s.Href != "":
		return s.Href
	case s.JobID != "":
		return strings.TrimSuffix(submitURL, "/") + "/" + s.JobID
	}
	return ""
}

// PollJob polls statusURL until the job succeeds, fails, or the attempt
// budget runs out. It returns the terminal response body.
func (c *Client) PollJob(ctx context.Context, statusURL string) (json.RawMessage, error) {
	for range c.maxAttempts {
		raw, err := c.do(ctx, http.MethodGet, statusURL, nil)
		if err != nil {
			return nil, err
		}

		var probe jobProbe
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, fmt.Errorf("decode job status: %w", err)
		}

		status := probe.status()
		switch status {
		case statusSucceeded:
			return raw, nil
		case statusFailed:
			return nil, fmt.Errorf("%w: %s", ErrJobFailed, probe.failure())
		case statusPending, statusRunning, statusProcessing:
			c.log.DebugContext(ctx, "job in progress",
				slog.String("status", status),
				slog.String("status_url", statusURL),
			)
		case "":
			// Some endpoints never report a terminal status and just
			// publish their outputs.
			if len(probe.Outputs) > 0 {
				return raw, nil
			}
			c.log.DebugContext(ctx, "job status missing, continuing to poll",
				slog.String("status_url", statusURL))
		default:
			c.log.DebugContext(ctx, "unknown job status, continuing to poll",
				slog.String("status", status))
		}

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("%w: %s after %d attempts", ErrJobTimeout, statusURL, c.maxAttempts)
}

// jobProbe covers the places Adobe's services put the job status.
type jobProbe struct {
	Status  string `json:"status"`
	Outputs []struct {
		Status string `json:"status"`
	} `json:"outputs"`
	Job *struct {
		Status string `json:"status"`
	} `json:"job"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func (p jobProbe) status() string {
	switch {
	case p.Status != "":
		return p.Status
	case len(p.Outputs) > 0 && p.Outputs[0].Status != "":
		return p.Outputs[0].Status
	case p.Job != nil:
		return p.Job.Status
	}
	return ""
}

// failure renders the error detail of a failed job. The error field may be
// a bare string or a structured object.
func (p jobProbe) failure() string {
	if len(p.Error) > 0 {
		var s string
		if err := json.Unmarshal(p.Error, &s); err == nil {
			return s
		}
		return string(p.Error)
	}
	if p.Message != "" {
		return p.Message
	}
	return "unknown error"
}
