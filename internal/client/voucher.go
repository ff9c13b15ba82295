package client

import (
	"time"

	"parkpass/internal/entities"
)

// EligibleVouchers filters a voucher list down to the currently redeemable
// subset. A voucher is excluded when it is spent (used flag or usedAt, either
// one counts), expired, or already earmarked for an in-flight reservation.
// The earmark check closes the race where a voucher applied to a pending
// checkout would otherwise still look redeemable.
func EligibleVouchers(vouchers []entities.Voucher, activeReservationIDs map[string]bool, now time.Time) []entities.Voucher {
	var eligible []entities.Voucher
	for _, v := range vouchers {
		if v.Redeemed() || v.Expired(now) {
			continue
		}
		if v.ReservationID != "" && activeReservationIDs[v.ReservationID] {
			continue
		}
		eligible = append(eligible, v)
	}
	return eligible
}

// BestVoucher picks the eligible voucher with the highest percentage. Ties
// keep the first one in input order; the ordering carries no meaning beyond
// "highest percentage wins". The second return value is false when nothing
// is eligible.
func BestVoucher(vouchers []entities.Voucher, activeReservationIDs map[string]bool, now time.Time) (entities.Voucher, bool) {
	eligible := EligibleVouchers(vouchers, activeReservationIDs, now)
	if len(eligible) == 0 {
		return entities.Voucher{}, false
	}
	best := eligible[0]
	for _, v := range eligible[1:] {
		if v.Percentage > best.Percentage {
			best = v
		}
	}
	return best, true
}

// ActiveReservationIDs builds the earmark set from a reservation list: every
// reservation still in flight (non-terminal) counts.
func ActiveReservationIDs(reservations []entities.Reservation) map[string]bool {
	ids := make(map[string]bool, len(reservations))
	for _, r := range reservations {
		if !r.Status.Terminal() {
			ids[r.ID] = true
		}
	}
	return ids
}
