package backend

// API defines the complete backend surface consumed by the payment core.
// Components should depend on the more granular interfaces (PurchaseCanceler,
// DiscountReader, etc.) instead of this one.
type API interface {
	PurchaseStore
	DiscountReader
}

// TokenSource supplies the current authentication token for outgoing calls.
// The session store is the only implementation in production.
type TokenSource interface {
	Get() (string, bool)
}
