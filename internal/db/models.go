package db

import (
	"time"

	"parkpass/internal/entities"
)

type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func (u *User) Entity() entities.User {
	return entities.User{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type Reservation struct {
	ID               string
	UserID           string
	Status           entities.ReservationStatus
	ValidFrom        time.Time
	ValidUntil       time.Time
	QRToken          string
	ConsumedAt       *time.Time
	CancelledAt      *time.Time
	Location         entities.EntityRef
	Gate             entities.EntityRef
	SessionID        string
	AppliedVoucherID string
	Amount           int
	Currency         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r *Reservation) Entity() entities.Reservation {
	return entities.Reservation{
		ID:          r.ID,
		Status:      r.Status,
		ValidFrom:   r.ValidFrom,
		ValidUntil:  r.ValidUntil,
		QRToken:     r.QRToken,
		ConsumedAt:  r.ConsumedAt,
		CancelledAt: r.CancelledAt,
		Location:    r.Location,
		Gate:        r.Gate,
		CreatedAt:   r.CreatedAt,
	}
}

type Voucher struct {
	ID            string
	UserID        string
	Code          string
	Percentage    int
	ExpiresAt     *time.Time
	UsedAt        *time.Time
	Used          bool
	ReservationID string
	CreatedAt     time.Time
}

func (v *Voucher) Entity() entities.Voucher {
	return entities.Voucher{
		ID:            v.ID,
		Code:          v.Code,
		Percentage:    v.Percentage,
		ExpiresAt:     v.ExpiresAt,
		UsedAt:        v.UsedAt,
		Used:          v.Used,
		ReservationID: v.ReservationID,
	}
}

// Activity is one lifecycle event in a user's activity feed. UserID scopes
// the record; it never leaves the server.
type Activity struct {
	ID            string
	UserID        string
	Type          string
	Message       string
	ReservationID string
	CreatedAt     time.Time
}

func (a *Activity) Entity() entities.Activity {
	return entities.Activity{
		ID:            a.ID,
		Type:          a.Type,
		Message:       a.Message,
		ReservationID: a.ReservationID,
		CreatedAt:     a.CreatedAt,
	}
}

// CheckoutSession is the server-side record of a payment session. Paid is
// flipped by the payment provider (or the simulated checkout page) and read
// by the confirm-payment endpoint.
type CheckoutSession struct {
	ID            string
	ReservationID string
	URL           string
	Paid          bool
	CreatedAt     time.Time
}
