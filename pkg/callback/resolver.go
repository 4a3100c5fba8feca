package callback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/andenbus/reservation-payments/pkg/backend"
	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/gateway"
	"github.com/andenbus/reservation-payments/pkg/holdtimer"
	"github.com/andenbus/reservation-payments/pkg/mapping"
	"github.com/andenbus/reservation-payments/pkg/models"
)

// SessionDiscarder drops the in-memory checkout session for a redeemed
// purchase. The broker implements it.
type SessionDiscarder interface {
	Discard(purchaseID int64)
}

// Result is the outcome of one reconciliation. Data always carries the
// receipt fields decoded from the callback URL, including on soft failures,
// so the user never has to re-enter already-valid data. Warnings collect the
// soft errors: the purchase is PAID despite them.
type Result struct {
	Data     *models.CallbackData
	Conflict bool
	Warnings []string
}

// Resolver consumes the gateway return URL delivered by the deep link and
// drives the one-way reconciliation of purchase state. It is the only
// component allowed to move a purchase to a terminal PAID state, it is
// idempotent under duplicate delivery, and it works with no in-memory hold
// at all: an app restarted between leaving for the gateway and coming back
// reconciles purely from the identifiers embedded in the URL.
type Resolver struct {
	Purchases backend.PurchaseStore
	Holds     *holdtimer.Registry
	Sessions  SessionDiscarder
	Logger    *slog.Logger
}

// NewResolver creates a Resolver. Holds and Sessions may be nil when no
// in-memory state survived.
func NewResolver(purchases backend.PurchaseStore, holds *holdtimer.Registry, sessions SessionDiscarder, logger *slog.Logger) *Resolver {
	return &Resolver{Purchases: purchases, Holds: holds, Sessions: sessions, Logger: logger}
}

// Resolve parses the callback URL and reconciles the purchase exactly once.
//
// A URL still carrying the literal session placeholder means the gateway
// never completed the flow: it must not be reconciled as success. On a real
// session reference the resolver confirms the paid transition for every leg,
// persists the gateway reference (a differing recorded reference is a soft
// conflict: logged, warned, still PAID), and completes the tracked hold
// timer so the cancellation path can no longer fire.
func (r *Resolver) Resolve(ctx context.Context, callbackURL string) (*Result, error) {
	data, err := mapping.ParseCallback(callbackURL)
	if err != nil {
		return nil, err
	}

	if data.SessionID == "" || data.SessionID == gateway.SessionPlaceholder {
		return nil, fmt.Errorf("callback %q: %w", callbackURL, faults.ErrGatewayNoSession)
	}

	result := &Result{Data: data}

	// The gateway has charged the user by now. A failed transition must
	// surface with the receipt intact: money may have moved without the
	// booking reflecting it.
	for _, id := range data.PurchaseIDs() {
		if err := r.Purchases.MarkPurchasePaid(ctx, id); err != nil {
			return result, fmt.Errorf("payment was taken but confirming purchase %d failed: %w", id, err)
		}
	}

	for _, id := range data.PurchaseIDs() {
		err := r.Purchases.SaveGatewayReference(ctx, id, data.SessionID)
		switch {
		case err == nil:
		case errors.Is(err, faults.ErrReconciliationConflict):
			r.Logger.Warn("purchase already carries a different gateway reference",
				slog.Int64("purchase_id", id),
				slog.String("reference", data.SessionID))
			result.Conflict = true
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("purchase %d already had a different payment reference recorded", id))
		default:
			// The purchase is PAID; a failed reference write is a soft error.
			r.Logger.Error("failed to persist gateway reference",
				slog.Int64("purchase_id", id),
				slog.String("error", err.Error()))
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("payment confirmed but recording the reference for purchase %d failed", id))
		}
	}

	if r.Holds != nil {
		if timer, ok := r.Holds.Find(data.PurchaseIDOutbound); ok {
			if err := timer.Complete(ctx); err != nil {
				return result, fmt.Errorf("hold could not be completed: %w", err)
			}
			r.Holds.Drop(timer)
		}
	}
	if r.Sessions != nil {
		r.Sessions.Discard(data.PurchaseIDOutbound)
	}

	r.Logger.Info("purchase reconciled",
		slog.Int64("purchase_id", data.PurchaseIDOutbound),
		slog.String("reference", data.SessionID),
		slog.Bool("conflict", result.Conflict))
	return result, nil
}
