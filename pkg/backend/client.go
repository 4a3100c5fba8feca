package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/models"
)

// Client implements the API interface against the booking backend's REST API.
// The backend is a black box: only its request/response contracts are known.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Logger     *slog.Logger

	// OnAuthExpired runs once per rejected token, before ErrAuthExpired is
	// returned. The composition root wires it to the session store's cleanup.
	OnAuthExpired func()
}

// NewClient creates a backend Client.
func NewClient(baseURL string, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
		Tokens:     tokens,
		Logger:     logger,
	}
}

// Make sure we conform to the interface
var _ API = (*Client)(nil)

// CancelPurchase requests the RESERVED → CANCELED transition. The backend may
// already have expired the hold server-side, so "already canceled" is success.
func (c *Client) CancelPurchase(ctx context.Context, purchaseID int64) error {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/purchases/%d/cancel", purchaseID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		c.Logger.Debug("purchase already canceled server-side", slog.Int64("purchase_id", purchaseID))
		return nil
	default:
		return c.statusError("cancel purchase", resp)
	}
}

// MarkPurchasePaid requests the RESERVED → PAID transition. Repeating the
// call for an already-paid purchase confirms the same end state. A 409 only
// says the transition was refused, so the actual status decides: PAID is the
// idempotent success, CANCELED means the hold was gone before the payment.
func (c *Client) MarkPurchasePaid(ctx context.Context, purchaseID int64) error {
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/purchases/%d/pay", purchaseID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		status, err := c.GetPurchaseStatus(ctx, purchaseID)
		if err != nil {
			return fmt.Errorf("transition refused and status unreadable for purchase %d: %w", purchaseID, err)
		}
		if status == models.PAID {
			c.Logger.Debug("purchase already paid", slog.Int64("purchase_id", purchaseID))
			return nil
		}
		return fmt.Errorf("purchase %d is %s, cannot mark paid: %w", purchaseID, status, faults.ErrHoldAlreadyExpired)
	default:
		return c.statusError("mark purchase paid", resp)
	}
}

// SaveGatewayReference records the gateway session reference for a purchase.
func (c *Client) SaveGatewayReference(ctx context.Context, purchaseID int64, reference string) error {
	body := map[string]string{"reference": reference}
	resp, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/purchases/%d/gateway-reference", purchaseID), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusConflict:
		return fmt.Errorf("purchase %d: %w", purchaseID, faults.ErrReconciliationConflict)
	default:
		return c.statusError("save gateway reference", resp)
	}
}

// GetPurchaseStatus retrieves the purchase's current status.
func (c *Client) GetPurchaseStatus(ctx context.Context, purchaseID int64) (models.PurchaseStatus, error) {
	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/purchases/%d", purchaseID), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError("get purchase status", resp)
	}

	var payload struct {
		Status models.PurchaseStatus `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode purchase status: %w", err)
	}
	return payload.Status, nil
}

// GetDiscount retrieves the discount offer matching a trip and seat signature.
// A 404 means "no discount", not an error.
func (c *Client) GetDiscount(ctx context.Context, tripID int64, seatSignature string) (*models.DiscountOffer, error) {
	path := fmt.Sprintf("/discounts?tripId=%d&seats=%s", tripID, seatSignature)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var offer models.DiscountOffer
		if err := json.NewDecoder(resp.Body).Decode(&offer); err != nil {
			return nil, fmt.Errorf("failed to decode discount offer: %w", err)
		}
		return &offer, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, c.statusError("discount lookup", resp)
	}
}

// do executes one authenticated request. Transport failures come back as
// faults.NetworkError; a rejected token comes back as faults.ErrAuthExpired
// after the OnAuthExpired hook has run.
func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.Tokens.Get(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &faults.NetworkError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if c.OnAuthExpired != nil {
			c.OnAuthExpired()
		}
		return nil, faults.ErrAuthExpired
	}

	return resp, nil
}

func (c *Client) statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s: backend returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}
