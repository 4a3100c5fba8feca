package holdtimer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/andenbus/reservation-payments/pkg/backend"
	"github.com/andenbus/reservation-payments/pkg/faults"
	"github.com/andenbus/reservation-payments/pkg/models"
	"github.com/andenbus/reservation-payments/pkg/scheduler"
)

// State defines the possible states of a hold timer.
type State string

const (
	CREATED   State = "CREATED"
	RUNNING   State = "RUNNING"
	PAUSED    State = "PAUSED"
	EXPIRED   State = "EXPIRED"
	COMPLETED State = "COMPLETED"
	CANCELED  State = "CANCELED"
)

// DefaultHoldDuration is the policy constant a fresh hold starts from.
const DefaultHoldDuration = 600 * time.Second

// PurchaseBackend is the slice of the backend the timer needs: cancelling
// held purchases on expiry and reading status to break the expiry/completion
// race.
type PurchaseBackend interface {
	backend.PurchaseCanceler
	backend.PurchaseStatusReader
}

// Timer tracks the countdown to expiry for one hold (outbound leg, plus the
// return leg on round trips). Remaining time is monotonically non-increasing
// while running; pausing stops the countdown without losing time, and only a
// brand-new hold gets a fresh timer. Reaching zero triggers a best-effort
// cancellation of every held purchase. The authoritative expiry check is a
// wall-clock deadline, so a missed tick cannot stretch the hold.
type Timer struct {
	mu           sync.Mutex
	state        State
	remaining    int
	deadline     time.Time
	reservations []models.Reservation

	purchases PurchaseBackend
	sched     scheduler.Scheduler
	task      scheduler.Task
	logger    *slog.Logger
	onExpire  []func()
	ctx       context.Context

	now func() time.Time
}

// Option customizes a Timer.
type Option func(*Timer)

// WithHoldDuration overrides the default hold duration.
func WithHoldDuration(d time.Duration) Option {
	return func(t *Timer) {
		if d > 0 {
			t.remaining = int(d.Seconds())
		}
	}
}

// WithDeadline sets a server-authoritative expiry instant instead of the
// client-side policy constant.
func WithDeadline(deadline time.Time) Option {
	return func(t *Timer) {
		remaining := int(time.Until(deadline).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		t.remaining = remaining
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Timer) {
		t.now = now
	}
}

// New creates a timer for the given hold. The reservations must carry at
// least one leg.
func New(reservations []models.Reservation, purchases PurchaseBackend, sched scheduler.Scheduler, logger *slog.Logger, opts ...Option) (*Timer, error) {
	if len(reservations) == 0 {
		return nil, &faults.ValidationError{Field: "reservations", Reason: "a hold needs at least one leg"}
	}
	for _, r := range reservations {
		if r.PurchaseID == 0 {
			return nil, &faults.ValidationError{Field: "purchaseId", Reason: "every held leg needs a purchase id"}
		}
	}
	t := &Timer{
		state:        CREATED,
		remaining:    int(DefaultHoldDuration.Seconds()),
		reservations: reservations,
		purchases:    purchases,
		sched:        sched,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// PurchaseIDs returns the purchase identifiers of every leg in the hold.
func (t *Timer) PurchaseIDs() []int64 {
	ids := make([]int64, len(t.reservations))
	for i, r := range t.reservations {
		ids[i] = r.PurchaseID
	}
	return ids
}

// Reservations returns the legs this timer guards.
func (t *Timer) Reservations() []models.Reservation {
	return t.reservations
}

// State returns the timer's current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the seconds left on the hold. Never negative.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// OnExpire registers a hook run after the timer expires and the cancellation
// requests have been issued.
func (t *Timer) OnExpire(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = append(t.onExpire, fn)
}

// Start begins the countdown. Only a CREATED timer can start; a hold never
// restarts.
func (t *Timer) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != CREATED {
		return fmt.Errorf("cannot start timer in state %s", t.state)
	}
	t.state = RUNNING
	t.ctx = ctx
	t.deadline = t.now().Add(time.Duration(t.remaining) * time.Second)
	t.task = t.sched.Every(time.Second, t.tick)
	return nil
}

// Pause stops the countdown without losing remaining time. Used when the
// hold screen loses focus.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != RUNNING {
		return
	}
	t.state = PAUSED
	t.stopTaskLocked()
}

// Resume continues a paused countdown from where it left off. A resumed
// timer never regains lost time; the wall-clock deadline is pushed out by
// exactly the pause duration.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != PAUSED {
		return
	}
	t.state = RUNNING
	t.deadline = t.now().Add(time.Duration(t.remaining) * time.Second)
	t.task = t.sched.Every(time.Second, t.tick)
}

// Cancel tears the timer down client-side without touching the backend.
// Screen teardown and session clearing use it; a cancelled tick callback can
// no longer fire into a dead timer.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.state {
	case CREATED, RUNNING, PAUSED:
		t.state = CANCELED
		t.stopTaskLocked()
	}
}

// Complete stops the countdown permanently once a checkout for this hold has
// a recorded gateway reference; the cancellation path can no longer fire.
// If the timer already expired, the backend's purchase status is the
// tie-breaker: completion wins only when the purchase is not already
// canceled, otherwise the payment is a late payment needing manual
// follow-up and Complete fails with faults.ErrHoldAlreadyExpired.
func (t *Timer) Complete(ctx context.Context) error {
	t.mu.Lock()
	switch t.state {
	case COMPLETED:
		t.mu.Unlock()
		return nil
	case CREATED, RUNNING, PAUSED:
		t.state = COMPLETED
		t.stopTaskLocked()
		t.mu.Unlock()
		return nil
	case CANCELED:
		t.mu.Unlock()
		return fmt.Errorf("hold was torn down before completion: %w", faults.ErrHoldAlreadyExpired)
	}
	// EXPIRED: ask the backend whether the cancellation actually landed.
	outbound := t.reservations[0].PurchaseID
	t.mu.Unlock()

	status, err := t.purchases.GetPurchaseStatus(ctx, outbound)
	if err != nil {
		return fmt.Errorf("failed to confirm purchase status after expiry: %w", err)
	}
	if status == models.CANCELED {
		return fmt.Errorf("payment arrived after the hold was canceled: %w", faults.ErrHoldAlreadyExpired)
	}

	t.mu.Lock()
	t.state = COMPLETED
	t.mu.Unlock()
	return nil
}

// tick runs once per second while the timer is scheduled. It decrements the
// displayed remaining time and expires the hold when either the counter or
// the wall-clock deadline runs out.
func (t *Timer) tick() {
	t.mu.Lock()
	if t.state != RUNNING {
		// A tick that raced a pause, completion or teardown is ignored.
		t.mu.Unlock()
		return
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining > 0 && t.now().Before(t.deadline) {
		t.mu.Unlock()
		return
	}
	t.remaining = 0
	t.state = EXPIRED
	t.stopTaskLocked()
	ids := t.PurchaseIDs()
	hooks := make([]func(), len(t.onExpire))
	copy(hooks, t.onExpire)
	ctx := t.ctx
	t.mu.Unlock()

	t.cancelPurchases(ctx, ids)
	for _, fn := range hooks {
		fn()
	}
}

// cancelPurchases issues the best-effort cancellation for every held leg.
// The backend may already have expired the hold server-side; its client
// treats "already canceled" as success, so only real failures are logged.
func (t *Timer) cancelPurchases(ctx context.Context, ids []int64) {
	for _, id := range ids {
		if err := t.purchases.CancelPurchase(ctx, id); err != nil {
			t.logger.Error("failed to cancel expired hold",
				slog.Int64("purchase_id", id),
				slog.String("error", err.Error()))
			continue
		}
		t.logger.Info("hold expired, purchase canceled", slog.Int64("purchase_id", id))
	}
}

func (t *Timer) stopTaskLocked() {
	if t.task != nil {
		t.task.Stop()
		t.task = nil
	}
}
