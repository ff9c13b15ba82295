package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpass/internal/entities"
)

func TestEligibleVouchersFiltersSpentAndExpired(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	vouchers := []entities.Voucher{
		{ID: "1", Percentage: 10, Used: false},
		{ID: "2", Percentage: 25, Used: true},
		{ID: "3", Percentage: 15, ExpiresAt: &past},
	}

	eligible := EligibleVouchers(vouchers, nil, now)
	require.Len(t, eligible, 1)
	assert.Equal(t, "1", eligible[0].ID)
}

func TestEligibleVouchersUsedAtCountsAsSpent(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	usedAt := now.Add(-time.Hour)

	// used=false but usedAt set: the redundant pair must be read as spent.
	vouchers := []entities.Voucher{
		{ID: "1", Percentage: 10, Used: false, UsedAt: &usedAt},
	}
	assert.Empty(t, EligibleVouchers(vouchers, nil, now))
}

func TestEligibleVouchersExcludesEarmarked(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	vouchers := []entities.Voucher{
		{ID: "1", Percentage: 10, ReservationID: "res_inflight"},
		{ID: "2", Percentage: 5},
	}
	active := map[string]bool{"res_inflight": true}

	eligible := EligibleVouchers(vouchers, active, now)
	require.Len(t, eligible, 1)
	assert.Equal(t, "2", eligible[0].ID)

	// Once the linked reservation is no longer in flight, the voucher is
	// back on the table.
	eligible = EligibleVouchers(vouchers, nil, now)
	assert.Len(t, eligible, 2)
}

func TestBestVoucherHighestPercentageWins(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	vouchers := []entities.Voucher{
		{ID: "a", Percentage: 10},
		{ID: "b", Percentage: 30},
		{ID: "c", Percentage: 20},
	}
	best, ok := BestVoucher(vouchers, nil, now)
	require.True(t, ok)
	assert.Equal(t, "b", best.ID)
}

func TestBestVoucherTieBreakIsStable(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	vouchers := []entities.Voucher{
		{ID: "first", Percentage: 25},
		{ID: "second", Percentage: 25},
	}
	best, ok := BestVoucher(vouchers, nil, now)
	require.True(t, ok)
	assert.Equal(t, "first", best.ID)
}

func TestBestVoucherNoneEligible(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	_, ok := BestVoucher([]entities.Voucher{{ID: "x", Used: true}}, nil, now)
	assert.False(t, ok)
}

func TestActiveReservationIDsSkipsTerminal(t *testing.T) {
	reservations := []entities.Reservation{
		{ID: "r1", Status: entities.StatusPending},
		{ID: "r2", Status: entities.StatusCancelled},
		{ID: "r3", Status: entities.StatusConfirmed},
		{ID: "r4", Status: entities.StatusCompleted},
	}
	ids := ActiveReservationIDs(reservations)
	assert.Equal(t, map[string]bool{"r1": true, "r3": true}, ids)
}
