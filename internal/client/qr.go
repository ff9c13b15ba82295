package client

import (
	"time"

	"parkpass/internal/entities"
)

// ConsumedGraceWindow is how long a spent QR code stays visible (overlaid)
// after the gate scan before the whole section is suppressed.
const ConsumedGraceWindow = 120 * time.Second

// QRDisplayState is what the QR section of a reservation should show right
// now. It is derived purely from the reservation's fields and the clock; the
// presence of a qrToken alone never implies validity.
type QRDisplayState int

const (
	// QRHidden: no QR section at all (cancelled, unpaid, or grace elapsed).
	QRHidden QRDisplayState = iota
	// QRActive: show the scannable code.
	QRActive
	// QRConsumed: code was redeemed; show it overlaid during the grace window.
	QRConsumed
	// QRExpired: admission window lapsed unconsumed; show overlaid, no timer.
	QRExpired
)

func (s QRDisplayState) String() string {
	switch s {
	case QRActive:
		return "ACTIVE"
	case QRConsumed:
		return "CONSUMED"
	case QRExpired:
		return "EXPIRED"
	default:
		return "HIDDEN"
	}
}

// QRSnapshot is one evaluation of the tracker. NextChange, when positive, is
// how long the current state lasts before it flips on its own (grace running
// out, admission window closing); zero means only a reservation update can
// change it.
type QRSnapshot struct {
	State      QRDisplayState
	Token      string
	NextChange time.Duration
}

// DeriveQRState evaluates the display rules at the given instant, in priority
// order: cancellation hides everything; consumption shows CONSUMED within the
// grace window and hides after it. The remaining grace is computed from
// consumedAt, so an old scan discovered late suppresses immediately instead
// of restarting the timer. A lapsed admission window shows
// EXPIRED with no suppression; otherwise the code is ACTIVE.
func DeriveQRState(r *entities.Reservation, now time.Time) QRSnapshot {
	if r == nil {
		return QRSnapshot{State: QRHidden}
	}

	if r.Status == entities.StatusCancelled || r.CancelledAt != nil {
		return QRSnapshot{State: QRHidden}
	}

	if r.ConsumedAt != nil {
		remaining := ConsumedGraceWindow - now.Sub(*r.ConsumedAt)
		if remaining <= 0 {
			return QRSnapshot{State: QRHidden}
		}
		return QRSnapshot{State: QRConsumed, Token: r.QRToken, NextChange: remaining}
	}

	if !r.ValidUntil.IsZero() && r.ValidUntil.Before(now) {
		return QRSnapshot{State: QRExpired, Token: r.QRToken}
	}

	if r.QRToken == "" {
		return QRSnapshot{State: QRHidden}
	}

	snapshot := QRSnapshot{State: QRActive, Token: r.QRToken}
	if !r.ValidUntil.IsZero() {
		snapshot.NextChange = r.ValidUntil.Sub(now)
	}
	return snapshot
}

// QRTracker evaluates the display state for whichever reservation currently
// backs the QR screen, and detects the moment consumption becomes visible by
// comparing consumedAt across observations. All remembered state is keyed by
// reservation id and discarded when the id changes, so timers derived from a
// previous reservation never fire against a new one. The tracker performs no
// network I/O; consumption is discovered by whoever refreshes the reservation.
type QRTracker struct {
	// Now is the clock, injectable for tests. Defaults to time.Now.
	Now func() time.Time

	trackedID    string
	lastConsumed *time.Time
}

func NewQRTracker() *QRTracker {
	return &QRTracker{Now: time.Now}
}

// Observe evaluates the given reservation. Passing a reservation with a new
// id resets the tracker to it. The second return value is true exactly once
// per reservation: on the observation where a set consumedAt is first seen.
func (t *QRTracker) Observe(r *entities.Reservation) (QRSnapshot, bool) {
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	if r == nil {
		return DeriveQRState(nil, now), false
	}
	if r.ID != t.trackedID {
		t.trackedID = r.ID
		t.lastConsumed = nil
	}
	justConsumed := r.ConsumedAt != nil && t.lastConsumed == nil
	t.lastConsumed = r.ConsumedAt
	return DeriveQRState(r, now), justConsumed
}
