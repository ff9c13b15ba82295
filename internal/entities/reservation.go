package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// ReservationStatus is the normalized lifecycle status of a reservation.
// The wire value is case-insensitive; it is upper-cased at the decoding
// boundary so comparisons against the constants below are exact.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusActive    ReservationStatus = "ACTIVE"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
	StatusExpired   ReservationStatus = "EXPIRED"
)

// NormalizeStatus maps a raw wire status to its canonical form.
func NormalizeStatus(s string) ReservationStatus {
	return ReservationStatus(strings.ToUpper(strings.TrimSpace(s)))
}

func (s *ReservationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = NormalizeStatus(raw)
	return nil
}

// Terminal reports whether no further transition out of s is accepted.
// Unrecognized statuses are treated as non-terminal.
func (s ReservationStatus) Terminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// Known reports whether s is one of the statuses this client understands.
func (s ReservationStatus) Known() bool {
	switch s {
	case StatusPending, StatusActive, StatusConfirmed, StatusCancelled, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

// EntityRef is a denormalized reference to a location or gate.
type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Reservation struct {
	ID          string            `json:"id"`
	Status      ReservationStatus `json:"status"`
	ValidFrom   time.Time         `json:"validFrom"`
	ValidUntil  time.Time         `json:"validUntil"`
	QRToken     string            `json:"qrToken,omitempty"`
	ConsumedAt  *time.Time        `json:"consumedAt"`
	CancelledAt *time.Time        `json:"cancelledAt"`
	Location    EntityRef         `json:"location"`
	Gate        EntityRef         `json:"gate"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// CheckoutSession pairs a reservation with an external payment session.
// It lives only for the duration of the payment flow.
type CheckoutSession struct {
	ReservationID string `json:"reservationId"`
	SessionID     string `json:"checkoutSessionId"`
	CheckoutURL   string `json:"checkoutUrl"`
}

type Pricing struct {
	Amount          int    `json:"amount"` // cents
	Currency        string `json:"currency"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
}
