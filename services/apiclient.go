// ABOUTME: HTTP client for the external accreditation REST API
// ABOUTME: JSON requests with typed errors, bearer auth and bounded retries for idempotent calls

package services

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

	"github.com/cenkalti/backoff/v5"
	"github.com/markalston/acreditaciones-portal/logger"
	"github.com/markalston/acreditaciones-portal/metrics"
)

const (
	userAgent        = "acreditaciones-portal/1.0"
	maxRetryAttempts = 3
	maxErrorBodyLog  = 512
)

// APIClientConfig configures an APIClient.
type APIClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RetryEnabled bool
	MaxAttempts  int
	RetryDelay   time.Duration
	// AllProxy routes traffic through an SSH jump box when set.
	AllProxy string
}

// APIClient talks to the accreditation API. It is safe for concurrent use.
type APIClient struct {
	baseURL     string
	client      *http.Client
	retry       bool
	maxAttempts int
	retryDelay  time.Duration
}

func NewAPIClient(cfg APIClientConfig) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.AllProxy != "" {
		if dial := newSOCKS5DialContext(cfg.AllProxy); dial != nil {
			transport.DialContext = dial
		}
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if attempts > maxRetryAttempts {
		attempts = maxRetryAttempts
	}

	return &APIClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		retry:       cfg.RetryEnabled && attempts > 1,
		maxAttempts: attempts,
		retryDelay:  cfg.RetryDelay,
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// SetHTTPClient allows overriding the HTTP client (useful for testing)
func (c *APIClient) SetHTTPClient(client *http.Client) {
	c.client = client
}

func (c *APIClient) BaseURL() string {
	return c.baseURL
}

func (c *APIClient) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, nil, nil)
}

func (c *APIClient) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, body, nil)
}

func (c *APIClient) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, body, nil)
}

func (c *APIClient) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// AuthenticatedRequest sends a request carrying the bearer token. An empty
// token sends the request without an Authorization header.
func (c *APIClient) AuthenticatedRequest(ctx context.Context, method, path string, body any, token string) (json.RawMessage, error) {
	var headers map[string]string
	if token != "" {
		headers = map[string]string{"Authorization": "Bearer " + token}
	}
	return c.Do(ctx, method, path, body, headers)
}

// Do sends a JSON request and returns the decoded response body. Any status
// of 400 or above is returned as an *APIError.
func (c *APIClient) Do(ctx context.Context, method, path string, body any, headers map[string]string) (json.RawMessage, error) {
	method = strings.ToUpper(method)

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		payload = encoded
	}

	operation := func() (json.RawMessage, error) {
		result, err := c.send(ctx, method, path, payload, headers)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var (
		result json.RawMessage
		err    error
	)
	if c.retry && idempotent(method) {
		result, err = backoff.Retry(ctx, operation,
			backoff.WithBackOff(c.newBackOff()),
			backoff.WithMaxTries(uint(c.maxAttempts)),
			backoff.WithNotify(func(err error, next time.Duration) {
				slog.Warn("Retrying API request", "method", method, "path", path, "retry_in", next, "error", err)
			}),
		)
	} else {
		result, err = operation()
	}

	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		slog.Error("API request failed",
			"method", method,
			"path", path,
			"status", statusOf(err),
			"body", logger.Redact(body),
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// send performs a single attempt.
func (c *APIClient) send(ctx context.Context, method, path string, payload []byte, headers map[string]string) (json.RawMessage, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, &APIError{Kind: ErrAPIUnavailable, Method: method, Path: path, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstream(method, path, "unavailable", time.Since(start).Seconds())
		return nil, &APIError{Kind: ErrAPIUnavailable, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordUpstream(method, path, "unavailable", time.Since(start).Seconds())
		return nil, &APIError{Kind: ErrAPIUnavailable, StatusCode: resp.StatusCode, Method: method, Path: path, Err: err}
	}

	result, apiErr := interpret(method, path, resp.StatusCode, raw)
	outcome := "success"
	if apiErr != nil {
		outcome = outcomeLabel(apiErr)
	}
	metrics.RecordUpstream(method, path, outcome, time.Since(start).Seconds())

	if apiErr != nil {
		return nil, apiErr
	}
	return result, nil
}

// interpret turns a completed response into a body or an *APIError.
func interpret(method, path string, status int, raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)

	if status >= http.StatusBadRequest {
		message := unknownAPIError
		var errBody struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(trimmed, &errBody) == nil && errBody.Message != "" {
			message = errBody.Message
		}
		slog.Debug("API error response", "status", status, "body", truncate(trimmed, maxErrorBodyLog))
		return nil, &APIError{
			Kind:       kindForStatus(status),
			StatusCode: status,
			Message:    message,
			Method:     method,
			Path:       path,
		}
	}

	if len(trimmed) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(trimmed) {
		return nil, &APIError{
			Kind:       ErrInvalidResponse,
			StatusCode: status,
			Message:    "Invalid JSON response from API",
			Method:     method,
			Path:       path,
		}
	}
	return json.RawMessage(trimmed), nil
}

func (c *APIClient) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// RequestBudget is the longest one request may take including retries and
// the waits between them. Zero means the HTTP client has no timeout.
func (c *APIClient) RequestBudget() time.Duration {
	if c.client.Timeout <= 0 {
		return 0
	}
	budget := time.Duration(c.maxAttempts) * c.client.Timeout
	if c.retry {
		delay := c.retryDelay
		if delay <= 0 {
			delay = backoff.DefaultInitialInterval
		}
		// Waits grow d, 2d with up to 50% jitter.
		budget += 5 * delay
	}
	return budget
}

func (c *APIClient) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	if c.retryDelay > 0 {
		bo.InitialInterval = c.retryDelay
	}
	bo.Multiplier = 2
	bo.MaxInterval = 4 * bo.InitialInterval
	return bo
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}

// retryable reports transport failures and gateway errors.
func retryable(err error) bool {
	if errors.Is(err, ErrAPIUnavailable) {
		return true
	}
	switch statusOf(err) {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	case statusOf(err) >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
