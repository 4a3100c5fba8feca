package models

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// PurchaseStatus defines the possible states of a purchase as reported by the backend.
// The backend is the source of truth; this client only requests transitions.
type PurchaseStatus string

const (
	RESERVED PurchaseStatus = "RESERVED"
	PAID     PurchaseStatus = "PAID"
	CANCELED PurchaseStatus = "CANCELED"
)

// Reservation represents one held leg of a trip (outbound or return).
// It is created by the booking flow and handed into the payment core;
// its seat set is immutable once held.
type Reservation struct {
	PurchaseID    int64     `json:"purchase_id"`
	TripID        int64     `json:"trip_id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	TravelDate    string    `json:"travel_date"`
	DepartureTime string    `json:"departure_time"`
	ArrivalTime   string    `json:"arrival_time"`
	BusID         string    `json:"bus_id"`
	Seats         []int     `json:"seats"`
	UnitPrice     float64   `json:"unit_price"`
	HeldAt        time.Time `json:"held_at"`
}

// Total returns the undiscounted price of the leg in major currency units.
func (r *Reservation) Total() float64 {
	return r.UnitPrice * float64(len(r.Seats))
}

// SeatSignature returns the canonical identity of the reservation's seat set:
// the seat numbers sorted ascending and comma-joined. Discount eligibility
// records carry the same signature, so matching is a string comparison.
func (r *Reservation) SeatSignature() string {
	return SeatSignature(r.Seats)
}

// SeatList returns the seat numbers comma-joined in their held order,
// for display and for embedding in the gateway return URL.
func (r *Reservation) SeatList() string {
	parts := make([]string, len(r.Seats))
	for i, s := range r.Seats {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// SeatSignature canonicalizes a seat set: sorted ascending, comma-joined.
func SeatSignature(seats []int) string {
	sorted := make([]int, len(seats))
	copy(sorted, seats)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ",")
}

// DiscountOffer is a pricing adjustment keyed by trip and seat-set signature.
type DiscountOffer struct {
	TripID        int64  `json:"trip_id"`
	SeatSignature string `json:"seat_signature"`
	Percent       int    `json:"percent"`
}

// CheckoutSession represents one submitted payment attempt against the gateway.
// GatewayReference stays empty until the gateway's return URL delivers it.
type CheckoutSession struct {
	ID                 string    `json:"id"`
	PurchaseIDOutbound int64     `json:"purchase_id_outbound"`
	PurchaseIDReturn   *int64    `json:"purchase_id_return,omitempty"`
	AmountMinor        int64     `json:"amount_minor"`
	SuccessURL         string    `json:"success_url"`
	CancelURL          string    `json:"cancel_url"`
	RedirectURL        string    `json:"redirect_url"`
	GatewayReference   string    `json:"gateway_reference,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// LegDetails carries the per-leg receipt fields embedded in the gateway
// return URL.
type LegDetails struct {
	Seats     string `json:"seats"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	BusID     string `json:"bus_id"`
}

// CallbackData is everything the gateway return URL carries: the gateway's
// session reference, the purchase identifiers to reconcile, and the receipt
// fields needed to redisplay the purchase after an app restart.
type CallbackData struct {
	SessionID          string      `json:"session_id"`
	PurchaseIDOutbound int64       `json:"purchase_id_outbound"`
	PurchaseIDReturn   *int64      `json:"purchase_id_return,omitempty"`
	Origin             string      `json:"origin"`
	Destination        string      `json:"destination"`
	DepartDate         string      `json:"depart_date"`
	ReturnDate         string      `json:"return_date,omitempty"`
	TotalPrice         string      `json:"total_price"`
	Outbound           LegDetails  `json:"outbound"`
	Return             *LegDetails `json:"return,omitempty"`
}

// PurchaseIDs returns the purchase identifiers present in the callback,
// outbound first.
func (d *CallbackData) PurchaseIDs() []int64 {
	ids := []int64{d.PurchaseIDOutbound}
	if d.PurchaseIDReturn != nil {
		ids = append(ids, *d.PurchaseIDReturn)
	}
	return ids
}
