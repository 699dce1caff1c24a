// Package advice calls the remote health advice and chat relay endpoints.
package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/realign/internal/logging"
	"github.com/aretw0/realign/pkg/domain"
)

// DefaultTimeout bounds every call when no other timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxResponseBytes caps how much of a reply body is read.
const maxResponseBytes = 1 << 20

// Client implements ports.AdviceService and ports.ChatService over HTTP.
// Each call is a single attempt; failures surface as *domain.TransportError.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type reportResponse struct {
	FinalRecommendation []string `json:"final_recommendation"`
	Duration            string   `json:"duration"`
	Frequency           string   `json:"frequency"`
	DietRecommendations string   `json:"diet_recommendations"`
	BlockedWorkouts     []string `json:"blocked_workouts"`
	Reasoning           string   `json:"reasoning"`
}

// Submit posts the flattened profile to /health-advice.
func (c *Client) Submit(ctx context.Context, payload map[string]any) (*domain.Report, error) {
	var res reportResponse
	if err := c.post(ctx, domain.EndpointAdvice, payload, &res); err != nil {
		return nil, err
	}
	if res.FinalRecommendation == nil {
		return nil, &domain.TransportError{
			Op:  domain.EndpointAdvice,
			Err: fmt.Errorf("%w: missing final_recommendation", domain.ErrMalformedResponse),
		}
	}

	return &domain.Report{
		FinalRecommendation: res.FinalRecommendation,
		Duration:            res.Duration,
		Frequency:           res.Frequency,
		DietRecommendations: res.DietRecommendations,
		BlockedWorkouts:     res.BlockedWorkouts,
		Reasoning:           res.Reasoning,
	}, nil
}

type chatRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Send relays a freeform query to /chat. A reply without "response" yields "".
func (c *Client) Send(ctx context.Context, query, threadID string) (string, error) {
	var res chatResponse
	if err := c.post(ctx, domain.EndpointChat, chatRequest{Query: query, ThreadID: threadID}, &res); err != nil {
		return "", err
	}
	return res.Response, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body, out any) error {
	fail := func(status int, err error) error {
		return &domain.TransportError{Op: endpoint, StatusCode: status, Err: err}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fail(0, fmt.Errorf("encode request: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(data))
	if err != nil {
		return fail(0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("Request failed", "endpoint", endpoint, "duration", time.Since(start), "err", err)
		return fail(0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	c.logger.Debug("Request completed", "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, errors.New(http.StatusText(resp.StatusCode)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err))
	}
	return nil
}
