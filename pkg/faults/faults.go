package faults

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the failure modes every component in the payment core
// has to distinguish. Wrap them with fmt.Errorf("...: %w", err) so callers
// can test with errors.Is.
var (
	// ErrAuthExpired means the stored session token is expired or was rejected
	// by the backend. Handled by the session store: clear, cascade, re-auth.
	ErrAuthExpired = errors.New("authentication session expired")

	// ErrGatewayNoSession means the gateway return URL still carries the
	// literal session placeholder: the gateway never completed the flow.
	ErrGatewayNoSession = errors.New("gateway did not deliver a session reference")

	// ErrReconciliationConflict means a purchase already has a different
	// gateway reference recorded. Soft: the purchase is still PAID.
	ErrReconciliationConflict = errors.New("gateway reference conflicts with the recorded one")

	// ErrHoldAlreadyExpired means the seat hold was cancelled (client- or
	// server-side) before the payment could be completed.
	ErrHoldAlreadyExpired = errors.New("seat hold already expired")
)

// NetworkError wraps a transport-level failure against the backend or the
// gateway. It is surfaced verbatim with a user-initiated retry affordance,
// except during discount lookup where it degrades to "no discount".
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetwork reports whether err is (or wraps) a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// GatewayRejectedError means the gateway refused the checkout request and
// carries the gateway's own message when it supplied one.
type GatewayRejectedError struct {
	Message string
}

func (e *GatewayRejectedError) Error() string {
	if e.Message == "" {
		return "payment could not be started"
	}
	return fmt.Sprintf("gateway rejected the checkout request: %s", e.Message)
}

// ValidationError reports client-side invalid input, e.g. an empty seat set.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// HTTPStatus maps a payment-core error to the status the HTTP surface responds with.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		ge *GatewayRejectedError
		ne *NetworkError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuthExpired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrHoldAlreadyExpired):
		return http.StatusGone
	case errors.Is(err, ErrGatewayNoSession):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrReconciliationConflict):
		return http.StatusConflict
	case errors.As(err, &ge):
		return http.StatusBadGateway
	case errors.As(err, &ne):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
