package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultModel is the completion model requested when none is set.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds one attempt's HTTP round trip.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2

	// DefaultBackoffBase is the first retry delay; it doubles per attempt.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultBackoffCap bounds a single backoff sleep.
	DefaultBackoffCap = 8 * time.Second

	completionsPath = "/chat/completions"
)

// CredentialSource supplies the bearer credential at call time, so
// settings changes apply to every subsequent request. An empty string is
// not an error at this layer: proxy endpoints may hold their own key.
type CredentialSource interface {
	APIKey() string
}

// StaticCredential is a CredentialSource with a fixed key.
type StaticCredential string

// APIKey returns the fixed key.
func (s StaticCredential) APIKey() string { return string(s) }

type contextKey int

const credentialContextKey contextKey = iota

// ContextWithCredential returns a context carrying a per-request bearer
// credential. It takes priority over the client's CredentialSource for
// requests issued under this context.
func ContextWithCredential(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, credentialContextKey, key)
}

func credentialFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(credentialContextKey).(string)
	return key, ok && key != ""
}

// Client sends completion requests through the endpoint rotation. Complete
// never fails its caller: after retries are exhausted it returns a
// deterministic mock tagged as degraded.
type Client struct {
	registry    *Registry
	httpClient  *http.Client
	credentials CredentialSource
	logger      *slog.Logger

	model       string
	pageOrigin  string
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	backoffCap  time.Duration
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithClientLogger sets a custom logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithModel sets the completion model.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithCredentials sets the bearer credential source.
func WithCredentials(src CredentialSource) ClientOption {
	return func(c *Client) { c.credentials = src }
}

// WithPageOrigin sets the origin reported in the diagnostic header.
func WithPageOrigin(origin string) ClientOption {
	return func(c *Client) { c.pageOrigin = origin }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the retry budget after the first attempt.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithBackoff sets the exponential backoff base and cap.
func WithBackoff(base, cap time.Duration) ClientOption {
	return func(c *Client) {
		if base > 0 {
			c.backoffBase = base
		}
		if cap > 0 {
			c.backoffCap = cap
		}
	}
}

// NewClient creates a Client over the given registry.
func NewClient(registry *Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry:    registry,
		httpClient:  &http.Client{},
		credentials: StaticCredential(""),
		logger:      slog.Default(),
		model:       DefaultModel,
		timeout:     DefaultTimeout,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		backoffCap:  DefaultBackoffCap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete performs one logical completion call. Attempts run strictly
// sequentially, each under its own timeout; between retryable failures
// the client sleeps on a capped exponential backoff and rotates the
// endpoint. When the budget is spent the deterministic mock is returned
// instead of an error. ctx cancellation also lands on the mock path, so
// the caller always holds a usable result.
func (c *Client) Complete(ctx context.Context, params CompletionParams) CompletionResult {
	requestID := uuid.NewString()

	if c.registry.Len() == 0 {
		c.logger.Error("completion served from mock",
			slog.String("request_id", requestID),
			slog.String("error", ErrNoEndpoints.Error()),
		)
		return MockCompletion(params, c.model)
	}

	backoff := retry.WithCappedDuration(c.backoffCap, retry.NewExponential(c.backoffBase))

	var malformedRetried bool
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		endpoint := c.registry.Current()
		result, err := c.attempt(ctx, endpoint, params, requestID)
		if err == nil {
			c.logger.Debug("completion succeeded",
				slog.String("request_id", requestID),
				slog.Int("attempt", attempt+1),
				slog.String("endpoint", endpoint.BaseURL),
			)
			return result
		}

		c.logger.Warn("completion attempt failed",
			slog.String("request_id", requestID),
			slog.Int("attempt", attempt+1),
			slog.String("endpoint", endpoint.BaseURL),
			slog.String("error", err.Error()),
		)

		// Malformed bodies earn one retry, not the whole budget: a
		// backend answering 200 with garbage will keep doing so.
		var malformed *MalformedResponseError
		if errors.As(err, &malformed) {
			if malformedRetried {
				break
			}
			malformedRetried = true
		}

		if !retryableAttempt(err) || attempt == c.maxRetries {
			break
		}

		c.registry.MarkDead(endpoint)
		c.registry.Rotate()

		delay, stop := backoff.Next()
		if stop {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			c.logger.Warn("completion canceled during backoff",
				slog.String("request_id", requestID),
			)
			return MockCompletion(params, c.model)
		}
	}

	c.logger.Error("completion retries exhausted, serving mock",
		slog.String("request_id", requestID),
		slog.String("last_user_content", lastUserContent(params.Messages)),
	)
	return MockCompletion(params, c.model)
}

// attempt performs a single HTTP round trip against one endpoint.
func (c *Client) attempt(ctx context.Context, endpoint Endpoint, params CompletionParams, requestID string) (CompletionResult, error) {
	payload := completionPayload{
		Model:       c.model,
		Messages:    params.Messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		N:           params.N,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return CompletionResult{}, &MalformedResponseError{Reason: "unserializable payload", Err: err}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := BuildURL(endpoint, completionsPath)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return CompletionResult{}, errors.Join(ErrNetwork, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.pageOrigin != "" {
		req.Header.Set("X-Relay-Origin", c.pageOrigin)
	}
	key, ok := credentialFromContext(ctx)
	if !ok {
		key = c.credentials.APIKey()
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return CompletionResult{}, ErrTimeout
		}
		return CompletionResult{}, errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CompletionResult{}, errors.Join(ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &HTTPError{Status: resp.StatusCode, Body: truncate(string(respBody), 512)}
		c.logger.Debug("endpoint returned error body",
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", httpErr.Body),
		)
		return CompletionResult{}, httpErr
	}

	return normalizeResponse(respBody, c.model)
}

// retryableAttempt classifies an attempt failure. Timeouts, network
// faults, retryable HTTP statuses and malformed bodies earn another
// attempt (malformed at most once, capped by the retry loop);
// non-retryable HTTP statuses do not.
func retryableAttempt(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return true
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNetwork)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
