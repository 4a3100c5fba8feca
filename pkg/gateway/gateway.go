package gateway

import "context"

// SessionPlaceholder is the literal token embedded in the success-redirect
// URL. The gateway substitutes its own session reference for it before
// redirecting back; a return URL that still carries the literal token means
// the gateway never completed the flow.
const SessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// CheckoutRequest is one checkout creation submitted to the gateway.
// Amounts are integral minor currency units, never fractional.
type CheckoutRequest struct {
	AmountMinor     int64  `json:"amount"`
	Currency        string `json:"currency"`
	Description     string `json:"description"`
	SuccessURL      string `json:"success_url"`
	CancelURL       string `json:"cancel_url"`
	ClientReference string `json:"client_reference"`
}

// Creator defines the interface for starting a checkout with the external
// payment gateway. It returns a URL to open in an external browsing context;
// waiting for the user to come back is not this component's responsibility.
type Creator interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
}
