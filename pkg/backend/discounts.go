package backend

import (
	"context"

	"github.com/andenbus/reservation-payments/pkg/models"
)

// DiscountReader defines the interface for discount eligibility lookups.
type DiscountReader interface {
	// GetDiscount retrieves the discount offer for a trip and seat-set
	// signature. Absence of a matching record returns (nil, nil), not an error.
	GetDiscount(ctx context.Context, tripID int64, seatSignature string) (*models.DiscountOffer, error)
}
