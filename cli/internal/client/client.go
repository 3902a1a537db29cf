// ABOUTME: HTTP client for the accreditation portal's own JSON routes
// ABOUTME: Wraps portal calls with error messages suited to CLI output

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/markalston/acreditaciones-portal/models"
)

// Client calls a running portal.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the portal at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (*models.HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.handleRequestError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.handleErrorResponse(resp)
	}

	var health models.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("invalid response from portal: %w", err)
	}
	if health.Status == "" {
		return nil, errors.New("invalid response from portal: missing status")
	}

	return &health, nil
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out")
	}
	return fmt.Errorf("cannot connect to portal at %s: %w", c.baseURL, err)
}

// handleErrorResponse reads the failure envelope when there is one.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Message == "" {
		return fmt.Errorf("portal returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("portal error: %s", envelope.Message)
}
