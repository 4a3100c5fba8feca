package backend

import (
	"context"

	"github.com/andenbus/reservation-payments/pkg/models"
)

// PurchaseCanceler defines the interface for releasing a held purchase.
type PurchaseCanceler interface {
	// CancelPurchase asks the backend to transition the purchase to CANCELED.
	// The call is idempotent: a purchase the backend already expired counts
	// as success.
	CancelPurchase(ctx context.Context, purchaseID int64) error
}

// PurchasePayer defines the interface for confirming payment of a purchase.
type PurchasePayer interface {
	// MarkPurchasePaid asks the backend to transition the purchase from
	// RESERVED to PAID. Idempotent: repeating it confirms the same end state.
	MarkPurchasePaid(ctx context.Context, purchaseID int64) error
}

// ReferenceWriter defines the interface for recording the gateway's session
// reference against a purchase.
type ReferenceWriter interface {
	// SaveGatewayReference persists the reference. Attaching a different
	// reference to a purchase that already has one recorded fails with
	// faults.ErrReconciliationConflict.
	SaveGatewayReference(ctx context.Context, purchaseID int64, reference string) error
}

// PurchaseStatusReader defines the interface for reading a purchase's status.
type PurchaseStatusReader interface {
	// GetPurchaseStatus retrieves the purchase's current status.
	GetPurchaseStatus(ctx context.Context, purchaseID int64) (models.PurchaseStatus, error)
}

// PurchaseStore combines every purchase-state operation the payment core needs.
type PurchaseStore interface {
	PurchaseCanceler
	PurchasePayer
	ReferenceWriter
	PurchaseStatusReader
}
