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

func trackedLifecycle(c *Client) *Lifecycle {
	l := NewLifecycle(c)
	l.Track(&entities.Reservation{ID: "res_1", Status: entities.StatusPending})
	l.ResumeCheckout(&entities.CheckoutSession{ReservationID: "res_1", SessionID: "cs_1"})
	return l
}

func fastPoller(l *Lifecycle) *PaymentPoller {
	p := NewPaymentPoller(l)
	p.Interval = 5 * time.Millisecond
	p.MaxWait = time.Second
	return p
}

func TestPollerConfirmsAfterNotReadyAnswers(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two "not yet confirmed" answers, then success.
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"payment not completed yet"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"reservation": entities.Reservation{ID: "res_1", Status: entities.StatusConfirmed, QRToken: "tok"},
		})
	}))

	lifecycle := trackedLifecycle(c)
	reservation, err := fastPoller(lifecycle).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusConfirmed, reservation.Status)
	assert.Equal(t, int32(3), calls.Load())

	// The local view has adopted the confirmation and the QR is derivable.
	snap := DeriveQRState(lifecycle.Reservation(), time.Now())
	assert.Equal(t, QRActive, snap.State)
}

func TestPollerFirstAttemptFiresImmediately(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"reservation":      entities.Reservation{ID: "res_1", Status: entities.StatusConfirmed},
			"alreadyConfirmed": true,
		})
	}))

	p := fastPoller(trackedLifecycle(c))
	p.Interval = time.Hour // success must not wait for a tick

	start := time.Now()
	_, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPollerStopsOnAuthError(t *testing.T) {
	var calls atomic.Int32
	c, creds := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"invalid or expired token"}`))
	}))
	require.NoError(t, creds.Save("stale", nil))

	_, err := fastPoller(trackedLifecycle(c)).Wait(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), calls.Load(), "a 401 stops the loop at once")

	token, _ := creds.Token()
	assert.Empty(t, token)
}

func TestPollerToleratesTransientServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"boom"}`))
		case 2:
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("<html>bad gateway</html>"))
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"reservation": entities.Reservation{ID: "res_1", Status: entities.StatusConfirmed},
			})
		}
	}))

	reservation, err := fastPoller(trackedLifecycle(c)).Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.StatusConfirmed, reservation.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollerTimesOut(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"payment not completed yet"}`))
	}))

	p := fastPoller(trackedLifecycle(c))
	p.MaxWait = 40 * time.Millisecond

	_, err := p.Wait(context.Background())
	assert.ErrorIs(t, err, ErrPollTimeout)
}

func TestPollerStopsWhenContextCancelled(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"payment not completed yet"}`))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fastPoller(trackedLifecycle(c)).Wait(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after context cancellation")
	}
}
