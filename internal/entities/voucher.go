package entities

import "time"

type Voucher struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Percentage    int        `json:"percentage"`
	ExpiresAt     *time.Time `json:"expiresAt"`
	UsedAt        *time.Time `json:"usedAt"`
	Used          bool       `json:"used"`
	ReservationID string     `json:"reservationId,omitempty"`
}

// Redeemed consolidates the redundant used flag and usedAt timestamp:
// either one marks the voucher as spent.
func (v Voucher) Redeemed() bool {
	return v.Used || v.UsedAt != nil
}

// Expired reports whether the voucher's expiry, if any, has passed.
func (v Voucher) Expired(now time.Time) bool {
	return v.ExpiresAt != nil && !v.ExpiresAt.After(now)
}
