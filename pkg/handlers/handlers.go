package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/andenbus/reservation-payments/pkg/callback"
	"github.com/andenbus/reservation-payments/pkg/checkout"
	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/holdtimer"
	"github.com/andenbus/reservation-payments/pkg/models"
	"github.com/go-chi/chi/v5"
)

// CheckoutCreator starts a payment attempt and returns the session to open.
type CheckoutCreator interface {
	Create(ctx context.Context, req checkout.CreateRequest) (*models.CheckoutSession, error)
}

// DiscountResolver folds eligibility into a percent, 0 when none applies.
type DiscountResolver interface {
	Resolve(ctx context.Context, purchaseID, tripID int64, seats []int) int
}

// Reconciler consumes a gateway return URL and reconciles purchase state.
type Reconciler interface {
	Resolve(ctx context.Context, callbackURL string) (*callback.Result, error)
}

// TimerFactory builds a hold timer for a fresh hold. The composition root
// binds the backend client and the tick scheduler into it.
type TimerFactory func(legs []models.Reservation) (*holdtimer.Timer, error)

// PaymentHandler exposes the payment core over HTTP: hold lifecycle,
// checkout initiation, and the gateway return endpoints the deep-link
// mechanism lands on.
type PaymentHandler struct {
	Checkout   CheckoutCreator
	Discounts  DiscountResolver
	Reconciler Reconciler
	Holds      *holdtimer.Registry
	NewTimer   TimerFactory
	Logger     *slog.Logger
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(co CheckoutCreator, disc DiscountResolver, rec Reconciler, holds *holdtimer.Registry, factory TimerFactory, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		Checkout:   co,
		Discounts:  disc,
		Reconciler: rec,
		Holds:      holds,
		NewTimer:   factory,
		Logger:     logger,
	}
}

// Routes mounts the handler on a chi router.
func (h *PaymentHandler) Routes(r chi.Router) {
	r.Post("/holds", h.CreateHold)
	r.Get("/holds/{purchaseID}", h.GetHold)
	r.Post("/holds/{purchaseID}/pause", h.PauseHold)
	r.Post("/holds/{purchaseID}/resume", h.ResumeHold)
	r.Post("/checkout", h.StartCheckout)
	r.Get("/payments/return", h.PaymentReturn)
	r.Get("/payments/cancelled", h.PaymentCancelled)
}

// legsRequest is the request body shared by hold creation and checkout:
// the held outbound leg and the optional return leg.
type legsRequest struct {
	Outbound models.Reservation  `json:"outbound"`
	Return   *models.Reservation `json:"return,omitempty"`
}

func (req *legsRequest) legs() []models.Reservation {
	legs := []models.Reservation{req.Outbound}
	if req.Return != nil {
		legs = append(legs, *req.Return)
	}
	return legs
}

// holdResponse reports the countdown state of one hold.
type holdResponse struct {
	PurchaseIDs      []int64         `json:"purchase_ids"`
	State            holdtimer.State `json:"state"`
	RemainingSeconds int             `json:"remaining_seconds"`
}

// CreateHold registers a fresh hold handed in by the booking flow and starts
// its countdown.
func (h *PaymentHandler) CreateHold(w http.ResponseWriter, r *http.Request) {
	var req legsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	timer, err := h.NewTimer(req.legs())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to create hold timer: %v", err), faults.HTTPStatus(err))
		return
	}

	// The countdown outlives the request; it ends by expiry, completion or
	// teardown, never because this request's context was released.
	if err := timer.Start(context.Background()); err != nil {
		http.Error(w, fmt.Sprintf("Failed to start hold timer: %v", err), http.StatusInternalServerError)
		return
	}
	h.Holds.Register(timer)

	writeJSON(w, http.StatusCreated, holdResponse{
		PurchaseIDs:      timer.PurchaseIDs(),
		State:            timer.State(),
		RemainingSeconds: timer.Remaining(),
	})
}

// GetHold reports a hold's countdown state.
func (h *PaymentHandler) GetHold(w http.ResponseWriter, r *http.Request) {
	timer, ok := h.findTimer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, holdResponse{
		PurchaseIDs:      timer.PurchaseIDs(),
		State:            timer.State(),
		RemainingSeconds: timer.Remaining(),
	})
}

// PauseHold stops the countdown while the hold screen is out of focus.
func (h *PaymentHandler) PauseHold(w http.ResponseWriter, r *http.Request) {
	timer, ok := h.findTimer(w, r)
	if !ok {
		return
	}
	timer.Pause()
	writeJSON(w, http.StatusOK, holdResponse{
		PurchaseIDs:      timer.PurchaseIDs(),
		State:            timer.State(),
		RemainingSeconds: timer.Remaining(),
	})
}

// ResumeHold continues the countdown from where it left off.
func (h *PaymentHandler) ResumeHold(w http.ResponseWriter, r *http.Request) {
	timer, ok := h.findTimer(w, r)
	if !ok {
		return
	}
	timer.Resume()
	writeJSON(w, http.StatusOK, holdResponse{
		PurchaseIDs:      timer.PurchaseIDs(),
		State:            timer.State(),
		RemainingSeconds: timer.Remaining(),
	})
}

// checkoutResponse carries everything the client needs to send the user to
// the gateway.
type checkoutResponse struct {
	SessionID       string `json:"session_id"`
	RedirectURL     string `json:"redirect_url"`
	AmountMinor     int64  `json:"amount_minor"`
	DiscountPercent int    `json:"discount_percent"`
}

// StartCheckout resolves the discount for the hold and submits a checkout
// session to the gateway. It never mutates purchase state; the user is sent
// to the returned URL and comes back through PaymentReturn.
func (h *PaymentHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	var req legsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if timer, ok := h.Holds.Find(req.Outbound.PurchaseID); ok && timer.State() == holdtimer.EXPIRED {
		http.Error(w, "Your hold expired, please search again", faults.HTTPStatus(faults.ErrHoldAlreadyExpired))
		return
	}

	percent := h.Discounts.Resolve(r.Context(), req.Outbound.PurchaseID, req.Outbound.TripID, req.Outbound.Seats)

	session, err := h.Checkout.Create(r.Context(), checkout.CreateRequest{
		Outbound:        req.Outbound,
		Return:          req.Return,
		DiscountPercent: percent,
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to start checkout: %v", err), faults.HTTPStatus(err))
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		SessionID:       session.ID,
		RedirectURL:     session.RedirectURL,
		AmountMinor:     session.AmountMinor,
		DiscountPercent: percent,
	})
}

// returnResponse is the reconciliation outcome shown after the gateway
// redirects back.
type returnResponse struct {
	Status   models.PurchaseStatus `json:"status"`
	Receipt  *models.CallbackData  `json:"receipt"`
	Warnings []string              `json:"warnings,omitempty"`
}

// PaymentReturn is the deep-link target the gateway redirects to on success.
// Duplicate deliveries are safe: reconciliation is idempotent.
func (h *PaymentHandler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	result, err := h.Reconciler.Resolve(r.Context(), r.URL.String())
	if err != nil {
		if result != nil && result.Data != nil {
			// The gateway charged but confirmation failed. Surface the
			// receipt so the user can retry without re-entering anything.
			h.Logger.Error("reconciliation failed after payment",
				slog.Int64("purchase_id", result.Data.PurchaseIDOutbound),
				slog.String("error", err.Error()))
			http.Error(w, fmt.Sprintf("Payment was taken but confirming your booking failed, please retry: %v", err), faults.HTTPStatus(err))
			return
		}
		http.Error(w, fmt.Sprintf("Payment could not be completed: %v", err), faults.HTTPStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, returnResponse{
		Status:   models.PAID,
		Receipt:  result.Data,
		Warnings: result.Warnings,
	})
}

// PaymentCancelled is the deep-link target for a checkout the user abandoned
// at the gateway. The hold keeps counting down; nothing is reconciled.
func (h *PaymentHandler) PaymentCancelled(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("checkout cancelled at the gateway")
	writeJSON(w, http.StatusOK, map[string]string{"status": "checkout cancelled"})
}

func (h *PaymentHandler) findTimer(w http.ResponseWriter, r *http.Request) (*holdtimer.Timer, bool) {
	raw := chi.URLParam(r, "purchaseID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid purchase id: %q", raw), http.StatusBadRequest)
		return nil, false
	}
	timer, ok := h.Holds.Find(id)
	if !ok {
		http.Error(w, fmt.Sprintf("No hold tracked for purchase %d", id), http.StatusNotFound)
		return nil, false
	}
	return timer, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}
