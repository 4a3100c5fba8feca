package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/gateway"
	"github.com/andenbus/reservation-payments/pkg/mapping"
	"github.com/andenbus/reservation-payments/pkg/models"
	"github.com/google/uuid"
)

// CreateRequest describes one payment attempt: the held outbound leg, the
// optional return leg, and the already-resolved discount percent.
type CreateRequest struct {
	Outbound        models.Reservation
	Return          *models.Reservation
	DiscountPercent int
}

// Broker builds and submits checkout requests to the external gateway. It
// only initiates: it returns a URL to open in an external browsing context
// and never waits for the outcome or mutates purchase state. At most one
// active session exists per purchase; a new submission explicitly supersedes
// any prior unredeemed one, with the gateway as final arbiter.
type Broker struct {
	Gateway       gateway.Creator
	ReturnBaseURL string
	Currency      string
	Logger        *slog.Logger

	mu     sync.Mutex
	active map[int64]*models.CheckoutSession

	now func() time.Time
}

// NewBroker creates a Broker. returnBaseURL is the deep-link base the
// gateway redirects back to, without a trailing slash.
func NewBroker(gw gateway.Creator, returnBaseURL, currency string, logger *slog.Logger) *Broker {
	return &Broker{
		Gateway:       gw,
		ReturnBaseURL: strings.TrimRight(returnBaseURL, "/"),
		Currency:      currency,
		Logger:        logger,
		active:        make(map[int64]*models.CheckoutSession),
		now:           time.Now,
	}
}

// Create validates the hold, computes the integral minor-unit amount from
// the discounted total, builds both redirect URLs and submits the checkout
// to the gateway. Neither failure mode mutates purchase state.
func (b *Broker) Create(ctx context.Context, req CreateRequest) (*models.CheckoutSession, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}

	total := req.Outbound.Total()
	if req.Return != nil {
		total += req.Return.Total()
	}
	discounted := total * (1 - float64(req.DiscountPercent)/100)
	amountMinor := int64(math.Round(discounted * 100))

	session := &models.CheckoutSession{
		ID:                 uuid.NewString(),
		PurchaseIDOutbound: req.Outbound.PurchaseID,
		AmountMinor:        amountMinor,
		SuccessURL:         b.successURL(&req, amountMinor),
		CancelURL:          b.ReturnBaseURL + "/payments/cancelled",
		CreatedAt:          b.now(),
	}
	if req.Return != nil {
		id := req.Return.PurchaseID
		session.PurchaseIDReturn = &id
	}

	redirect, err := b.Gateway.CreateCheckoutSession(ctx, gateway.CheckoutRequest{
		AmountMinor:     amountMinor,
		Currency:        b.Currency,
		Description:     description(&req.Outbound, req.Return),
		SuccessURL:      session.SuccessURL,
		CancelURL:       session.CancelURL,
		ClientReference: session.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout creation failed: %w", err)
	}
	session.RedirectURL = redirect

	b.track(session)
	b.Logger.Info("checkout session created",
		slog.String("session", session.ID),
		slog.Int64("purchase_id", session.PurchaseIDOutbound),
		slog.Int64("amount_minor", amountMinor))
	return session, nil
}

// Active returns the unredeemed session covering a purchase, if any.
func (b *Broker) Active(purchaseID int64) (*models.CheckoutSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.active[purchaseID]
	return s, ok
}

// Discard drops the session covering a purchase. The completion resolver
// calls it once the session is redeemed; the session store's clear cascade
// calls DiscardAll.
func (b *Broker) Discard(purchaseID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.discardLocked(purchaseID)
}

// DiscardAll drops every in-flight session.
func (b *Broker) DiscardAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = make(map[int64]*models.CheckoutSession)
}

// successURL assembles the success-redirect template. The gateway session
// placeholder is appended outside the encoded query so it reaches the
// gateway as a literal token; every free-text field is percent-encoded. The
// embedded total is derived from the charged minor units, not re-rounded.
func (b *Broker) successURL(req *CreateRequest, amountMinor int64) string {
	query := mapping.SuccessQuery(&req.Outbound, req.Return, amountMinor)
	return fmt.Sprintf("%s/payments/return?session_id=%s&%s",
		b.ReturnBaseURL, gateway.SessionPlaceholder, query.Encode())
}

// track records the session under every purchase id it covers, superseding
// any prior unredeemed session for the same purchase.
func (b *Broker) track(session *models.CheckoutSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := []int64{session.PurchaseIDOutbound}
	if session.PurchaseIDReturn != nil {
		ids = append(ids, *session.PurchaseIDReturn)
	}
	for _, id := range ids {
		if prior, ok := b.active[id]; ok && prior.ID != session.ID {
			b.Logger.Info("superseding unredeemed checkout session",
				slog.Int64("purchase_id", id),
				slog.String("prior_session", prior.ID),
				slog.String("session", session.ID))
			b.discardLocked(id)
		}
		b.active[id] = session
	}
}

func (b *Broker) discardLocked(purchaseID int64) {
	session, ok := b.active[purchaseID]
	if !ok {
		return
	}
	delete(b.active, purchaseID)
	if session.PurchaseIDReturn != nil {
		delete(b.active, *session.PurchaseIDReturn)
	}
	delete(b.active, session.PurchaseIDOutbound)
}

func validate(req *CreateRequest) error {
	if err := validateLeg("outbound", &req.Outbound); err != nil {
		return err
	}
	if req.Return != nil {
		if err := validateLeg("return", req.Return); err != nil {
			return err
		}
		if req.Return.Origin != req.Outbound.Destination || req.Return.Destination != req.Outbound.Origin {
			return &faults.ValidationError{Field: "return", Reason: "origin/destination do not mirror the outbound leg"}
		}
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return &faults.ValidationError{Field: "discount", Reason: "percent out of range"}
	}
	return nil
}

func validateLeg(name string, r *models.Reservation) error {
	if r.PurchaseID == 0 {
		return &faults.ValidationError{Field: name, Reason: "missing purchase id"}
	}
	if len(r.Seats) == 0 {
		return &faults.ValidationError{Field: name, Reason: "empty seat set"}
	}
	seen := make(map[int]struct{}, len(r.Seats))
	for _, s := range r.Seats {
		if _, dup := seen[s]; dup {
			return &faults.ValidationError{Field: name, Reason: fmt.Sprintf("duplicate seat %d", s)}
		}
		seen[s] = struct{}{}
	}
	if r.Origin == "" || r.Destination == "" {
		return &faults.ValidationError{Field: name, Reason: "missing origin or destination"}
	}
	if r.UnitPrice <= 0 {
		return &faults.ValidationError{Field: name, Reason: "unit price must be positive"}
	}
	return nil
}

func description(outbound *models.Reservation, ret *models.Reservation) string {
	if ret != nil {
		return fmt.Sprintf("Bus tickets %s / %s, round trip, %d+%d seats",
			outbound.Origin, outbound.Destination, len(outbound.Seats), len(ret.Seats))
	}
	return fmt.Sprintf("Bus tickets %s / %s, %d seats",
		outbound.Origin, outbound.Destination, len(outbound.Seats))
}
