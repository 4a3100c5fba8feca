package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/andenbus/reservation-payments/pkg/faults"
)

// Client implements the Creator interface against the gateway's HTTP API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a gateway Client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: http.DefaultClient,
	}
}

// Make sure we conform to the interface
var _ Creator = (*Client)(nil)

// CreateCheckoutSession submits the checkout request and returns the URL the
// user must be sent to. Gateway rejections carry the gateway's own message.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build checkout request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", &faults.NetworkError{Op: "checkout creation", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var payload struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		// Best effort: a rejection without a parseable body still surfaces.
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return "", &faults.GatewayRejectedError{Message: payload.Error.Message}
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode checkout response: %w", err)
	}
	if payload.URL == "" {
		return "", &faults.GatewayRejectedError{Message: "gateway response carried no checkout URL"}
	}
	return payload.URL, nil
}
