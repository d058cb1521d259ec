// Package receiptimg is the client for the external receipt-image service.
// Image generation is decorative: callers treat failures as best effort and
// ship the receipt without an image.
package receiptimg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 15 * time.Second

// Config contains configuration for the image client.
type Config struct {
	// BaseURL is the base URL of the image generation service.
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Timeout is the HTTP client timeout. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client is an HTTP client for the image generation API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an image client. A nil client is returned when no base
// URL is configured; every method on a nil client reports "disabled".
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		return nil
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	URL string `json:"url"`
}

// Generate asks the service for a receipt image and returns its URL.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("image generation is disabled")
	}

	body, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/images", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call image API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image API returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode image API response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("image API returned no url")
	}
	return out.URL, nil
}

// ReceiptPrompt renders the canned prompt used for sale receipts.
func ReceiptPrompt(product string, amount float64) string {
	return fmt.Sprintf("Stylized purchase receipt for %q, paid %.2f USD in stablecoin, retro print aesthetic", product, amount)
}
