package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkpass/internal/entities"
)

func TestCanTransitionEdges(t *testing.T) {
	cases := []struct {
		from, to entities.ReservationStatus
		want     bool
	}{
		{entities.StatusPending, entities.StatusConfirmed, true},
		{entities.StatusPending, entities.StatusActive, true},
		{entities.StatusPending, entities.StatusCancelled, true},
		{entities.StatusPending, entities.StatusExpired, true},
		{entities.StatusPending, entities.StatusCompleted, false},
		{entities.StatusConfirmed, entities.StatusActive, true},
		{entities.StatusActive, entities.StatusCompleted, true},
		{entities.StatusConfirmed, entities.StatusCancelled, true},
		{entities.StatusCancelled, entities.StatusPending, false},
		{entities.StatusCancelled, entities.StatusActive, false},
		{entities.StatusCompleted, entities.StatusCancelled, false},
		{entities.StatusExpired, entities.StatusConfirmed, false},
		{entities.StatusExpired, entities.StatusExpired, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionUnknownStatusIsNonTerminal(t *testing.T) {
	unknown := entities.ReservationStatus("ON_HOLD")
	assert.True(t, CanTransition(unknown, entities.StatusActive))
	assert.True(t, CanTransition(entities.StatusPending, unknown))
	assert.False(t, CanTransition(entities.StatusCancelled, unknown))
}

func TestCreateValidatesBeforeNetwork(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	lifecycle := NewLifecycle(c)

	_, _, err := lifecycle.Create(context.Background(), "", "gate_1")
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "locationId", vErr.Field)

	_, _, err = lifecycle.Create(context.Background(), "loc_1", "")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "gateId", vErr.Field)

	assert.Zero(t, calls.Load(), "validation failures must not reach the network")
}

func TestCancelFromTerminalFailsWithoutNetworkCall(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	cancelledAt := time.Now().UTC()
	for _, status := range []entities.ReservationStatus{
		entities.StatusCancelled, entities.StatusCompleted, entities.StatusExpired,
	} {
		lifecycle := NewLifecycle(c)
		lifecycle.Track(&entities.Reservation{ID: "res_1", Status: status, CancelledAt: &cancelledAt})

		_, err := lifecycle.Cancel(context.Background())
		var tErr *TransitionError
		require.ErrorAs(t, err, &tErr, "cancel from %s", status)
		assert.Equal(t, status, tErr.From)
		assert.Equal(t, entities.StatusCancelled, tErr.To)

		// State unchanged, and no second voucher can have been issued.
		assert.Equal(t, status, lifecycle.Reservation().Status)
	}
	assert.Zero(t, calls.Load(), "terminal-state cancel must never reach the network")
}

func TestCancelSignalsVoucherListStale(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancelledAt := time.Now().UTC()
		json.NewEncoder(w).Encode(map[string]interface{}{
			"reservation": entities.Reservation{
				ID:          "res_1",
				Status:      entities.StatusCancelled,
				CancelledAt: &cancelledAt,
			},
		})
	}))

	lifecycle := NewLifecycle(c)
	lifecycle.Track(&entities.Reservation{ID: "res_1", Status: entities.StatusConfirmed})
	stale := false
	lifecycle.VouchersStale = func() { stale = true }

	reservation, err := lifecycle.Cancel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, reservation.Status)
	assert.NotNil(t, reservation.CancelledAt)
	assert.True(t, stale, "cancellation issues a voucher server-side; cached lists are stale")
}

func TestTrackNormalizesWireStatus(t *testing.T) {
	c, _ := newTestClient(t, http.NotFoundHandler())
	lifecycle := NewLifecycle(c)
	lifecycle.Track(&entities.Reservation{ID: "res_1", Status: "confirmed"})
	assert.Equal(t, entities.StatusConfirmed, lifecycle.Reservation().Status)
}

func TestRefreshAdoptsServerStateButNotTerminalRegression(t *testing.T) {
	status := entities.StatusActive
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"reservation": entities.Reservation{ID: "res_1", Status: status},
		})
	}))

	lifecycle := NewLifecycle(c)
	lifecycle.Track(&entities.Reservation{ID: "res_1", Status: entities.StatusConfirmed})

	reservation, err := lifecycle.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusActive, reservation.Status)

	// Once terminal locally, a stale server answer must not resurrect it.
	lifecycle.Track(&entities.Reservation{ID: "res_1", Status: entities.StatusCancelled})
	reservation, err = lifecycle.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusCancelled, reservation.Status)
}

func TestRefreshCarriesUnknownStatusWithoutActing(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"reservation":{"id":"res_1","status":"on_hold"}}`))
	}))

	lifecycle := NewLifecycle(c)
	lifecycle.Track(&entities.Reservation{ID: "res_1", Status: entities.StatusPending})

	reservation, err := lifecycle.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.ReservationStatus("ON_HOLD"), reservation.Status)
	assert.False(t, reservation.Status.Known())
	assert.False(t, reservation.Status.Terminal())

	// Non-actionable: a user cancel is refused locally.
	_, err = lifecycle.Cancel(context.Background())
	var tErr *TransitionError
	require.ErrorAs(t, err, &tErr)
}

func TestRefreshNeverClearsConsumedAt(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"reservation": entities.Reservation{ID: "res_1", Status: entities.StatusActive},
		})
	}))

	consumed := time.Now().UTC()
	lifecycle := NewLifecycle(c)
	lifecycle.Track(&entities.Reservation{ID: "res_1", Status: entities.StatusActive, ConsumedAt: &consumed})

	reservation, err := lifecycle.Refresh(context.Background())
	require.NoError(t, err)
	require.NotNil(t, reservation.ConsumedAt, "consumedAt is set exactly once and never cleared")
	assert.Equal(t, consumed.Unix(), reservation.ConsumedAt.Unix())
}
