package client

import (
	"context"
	"fmt"
	"log"
	"sync"

	"parkpass/internal/entities"
)

// ValidationError marks input rejected before any network call.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// TransitionError marks an operation that would move a reservation along an
// edge the lifecycle does not allow. The tracked state is left unchanged.
type TransitionError struct {
	From, To entities.ReservationStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid reservation transition %s -> %s", e.From, e.To)
}

// validEdges is the full transition relation. PENDING moves into the paid
// layer (ACTIVE or CONFIRMED) or dies (CANCELLED, EXPIRED). Within the paid
// layer the two statuses may swap as the server records payment vs. gate
// admission. CANCELLED, COMPLETED and EXPIRED accept nothing.
var validEdges = map[entities.ReservationStatus]map[entities.ReservationStatus]bool{
	entities.StatusPending: {
		entities.StatusActive:    true,
		entities.StatusConfirmed: true,
		entities.StatusCancelled: true,
		entities.StatusExpired:   true,
	},
	entities.StatusActive: {
		entities.StatusConfirmed: true,
		entities.StatusCompleted: true,
		entities.StatusCancelled: true,
		entities.StatusExpired:   true,
	},
	entities.StatusConfirmed: {
		entities.StatusActive:    true,
		entities.StatusCompleted: true,
		entities.StatusCancelled: true,
		entities.StatusExpired:   true,
	},
	entities.StatusCancelled: {},
	entities.StatusCompleted: {},
	entities.StatusExpired:   {},
}

// CanTransition reports whether status may move from one value to another.
// Staying put is always allowed. Unknown statuses are non-terminal and
// non-actionable: nothing may be derived from them locally, but fresh server
// state may replace them.
func CanTransition(from, to entities.ReservationStatus) bool {
	if from == to {
		return true
	}
	if !from.Known() {
		return to.Known()
	}
	if !to.Known() {
		return !from.Terminal()
	}
	return validEdges[from][to]
}

// cancellableFrom lists the statuses a user-initiated cancel is legal from.
func cancellableFrom(status entities.ReservationStatus) bool {
	switch status {
	case entities.StatusPending, entities.StatusActive, entities.StatusConfirmed:
		return true
	}
	return false
}

// Lifecycle tracks a single reservation on the client and enforces the
// transition rules above. Server state learned through Create, ConfirmPayment,
// Cancel and Refresh is adopted as authoritative, except that a terminal
// reservation never leaves its terminal state.
type Lifecycle struct {
	client *Client

	mu          sync.Mutex
	reservation *entities.Reservation
	session     *entities.CheckoutSession

	// VouchersStale, when set, is called after a successful cancellation:
	// the backend has issued a voucher as a byproduct, so any cached voucher
	// list must be refreshed.
	VouchersStale func()
}

func NewLifecycle(c *Client) *Lifecycle {
	return &Lifecycle{client: c}
}

// Reservation returns a copy of the tracked reservation, or nil.
func (l *Lifecycle) Reservation() *entities.Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.reservation == nil {
		return nil
	}
	cp := *l.reservation
	return &cp
}

// Session returns the checkout session of the in-flight payment flow, or nil.
func (l *Lifecycle) Session() *entities.CheckoutSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		return nil
	}
	cp := *l.session
	return &cp
}

// Track adopts an existing reservation (hydration from /reservations/mine or
// a deep link) without a checkout session.
func (l *Lifecycle) Track(r *entities.Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *r
	cp.Status = entities.NormalizeStatus(string(cp.Status))
	l.reservation = &cp
	l.session = nil
}

// ResumeCheckout re-attaches an ephemeral checkout session, e.g. one carried
// over from the run that created the reservation.
func (l *Lifecycle) ResumeCheckout(session *entities.CheckoutSession) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *session
	l.session = &cp
}

// Create reserves a spot and begins the payment flow. The new reservation
// arrives in PENDING with an associated checkout session.
func (l *Lifecycle) Create(ctx context.Context, locationID, gateID string) (*entities.Reservation, *entities.CheckoutSession, error) {
	if locationID == "" {
		return nil, nil, &ValidationError{Field: "locationId"}
	}
	if gateID == "" {
		return nil, nil, &ValidationError{Field: "gateId"}
	}

	result, err := l.client.CreateReservation(ctx, locationID, gateID)
	if err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	reservation := result.Reservation
	session := result.Session
	l.reservation = &reservation
	l.session = &session
	l.mu.Unlock()

	resCopy := result.Reservation
	sesCopy := result.Session
	return &resCopy, &sesCopy, nil
}

// ConfirmPayment issues one confirmation attempt for the tracked checkout
// session. It is idempotent on the server: after the first confirmation the
// same reservation comes back with alreadyConfirmed set and no side effects.
// A 400 ("not yet confirmed") is returned as-is for the poller to swallow.
func (l *Lifecycle) ConfirmPayment(ctx context.Context) (*entities.Reservation, bool, error) {
	l.mu.Lock()
	if l.reservation == nil {
		l.mu.Unlock()
		return nil, false, &ValidationError{Field: "reservationId"}
	}
	reservationID := l.reservation.ID
	// The session is discarded once confirmation succeeds; the server answers
	// repeat confirmations idempotently without one.
	sessionID := ""
	if l.session != nil {
		sessionID = l.session.SessionID
	}
	l.mu.Unlock()

	reservation, already, err := l.client.ConfirmPayment(ctx, reservationID, sessionID)
	if err != nil {
		return nil, false, err
	}
	l.adopt(reservation)
	return l.Reservation(), already, nil
}

// Cancel cancels the tracked reservation. Cancelling from a terminal state
// fails locally with a TransitionError before any network call is made, so
// a double cancel never re-issues a voucher.
func (l *Lifecycle) Cancel(ctx context.Context) (*entities.Reservation, error) {
	l.mu.Lock()
	if l.reservation == nil {
		l.mu.Unlock()
		return nil, &ValidationError{Field: "reservationId"}
	}
	current := l.reservation.Status
	reservationID := l.reservation.ID
	l.mu.Unlock()

	if !cancellableFrom(current) {
		return nil, &TransitionError{From: current, To: entities.StatusCancelled}
	}

	reservation, err := l.client.CancelReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	l.adopt(reservation)

	if l.VouchersStale != nil {
		l.VouchersStale()
	}
	return l.Reservation(), nil
}

// Refresh re-fetches the tracked reservation. This is how out-of-band changes
// (gate scans, server-side expiry) become visible to the client.
func (l *Lifecycle) Refresh(ctx context.Context) (*entities.Reservation, error) {
	l.mu.Lock()
	if l.reservation == nil {
		l.mu.Unlock()
		return nil, &ValidationError{Field: "reservationId"}
	}
	reservationID := l.reservation.ID
	l.mu.Unlock()

	reservation, err := l.client.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	l.adopt(reservation)
	return l.Reservation(), nil
}

// adopt merges fresh server state into the tracked reservation. Server truth
// wins, with two guards: terminal states never regress, and a status the
// client does not recognize is logged and carried as-is without acting on it.
func (l *Lifecycle) adopt(fresh *entities.Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cp := *fresh
	cp.Status = entities.NormalizeStatus(string(cp.Status))

	if !cp.Status.Known() {
		log.Printf("Server reported unrecognized reservation status %q for %s", cp.Status, cp.ID)
	}

	if l.reservation != nil && l.reservation.ID == cp.ID {
		if l.reservation.Status.Terminal() && cp.Status != l.reservation.Status {
			log.Printf("Ignoring transition out of terminal state %s for reservation %s", l.reservation.Status, cp.ID)
			cp.Status = l.reservation.Status
		}
		// consumedAt is set exactly once and never cleared.
		if l.reservation.ConsumedAt != nil && cp.ConsumedAt == nil {
			cp.ConsumedAt = l.reservation.ConsumedAt
		}
	}
	l.reservation = &cp

	if cp.Status.Terminal() || cp.Status == entities.StatusConfirmed || cp.Status == entities.StatusActive {
		// The payment flow is over either way; the ephemeral session is gone.
		l.session = nil
	}
}
