package discount

import (
	"context"
	"log/slog"

	"github.com/andenbus/reservation-payments/pkg/backend"
	"github.com/andenbus/reservation-payments/pkg/models"
)

// Resolver looks up whether a held reservation qualifies for a discount.
// Lookup failure is non-fatal by design: checkout proceeds with no discount
// and the failure is logged for later reconciliation.
type Resolver struct {
	Reader backend.DiscountReader
	Logger *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(reader backend.DiscountReader, logger *slog.Logger) *Resolver {
	return &Resolver{Reader: reader, Logger: logger}
}

// Resolve returns the discount percent (0–100) to fold into the final price,
// or 0 when no offer matches or the lookup fails. Eligibility records have
// no purchase index, so matching compares the trip id and the seat-set
// signature (sorted seat numbers).
func (r *Resolver) Resolve(ctx context.Context, purchaseID, tripID int64, seats []int) int {
	signature := models.SeatSignature(seats)

	offer, err := r.Reader.GetDiscount(ctx, tripID, signature)
	if err != nil {
		r.Logger.Warn("discount lookup failed, proceeding without discount",
			slog.Int64("purchase_id", purchaseID),
			slog.Int64("trip_id", tripID),
			slog.String("error", err.Error()))
		return 0
	}
	if offer == nil {
		return 0
	}
	if offer.TripID != tripID || offer.SeatSignature != signature {
		r.Logger.Warn("discount offer does not match reservation",
			slog.Int64("purchase_id", purchaseID),
			slog.Int64("trip_id", tripID),
			slog.String("signature", signature))
		return 0
	}
	if offer.Percent < 0 || offer.Percent > 100 {
		r.Logger.Warn("discarding out-of-range discount percent",
			slog.Int64("trip_id", tripID),
			slog.Int("percent", offer.Percent))
		return 0
	}
	return offer.Percent
}
