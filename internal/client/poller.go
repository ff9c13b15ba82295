package client

import (
	"context"
	"errors"
	"log"
	"time"

	"parkpass/internal/entities"
)

const (
	// DefaultPollInterval is the confirmation cadence after checkout opens.
	DefaultPollInterval = 3 * time.Second
	// DefaultMaxWait bounds the whole confirmation loop. The backend has no
	// such bound; an abandoned checkout would otherwise poll forever.
	DefaultMaxWait = 10 * time.Minute
)

// ErrPollTimeout is returned when payment confirmation did not arrive within
// MaxWait. Callers should surface a stalled-payment state.
var ErrPollTimeout = errors.New("payment confirmation timed out")

// PaymentPoller bridges "checkout opened in the external payment page" and
// "server has recorded payment" by repeatedly confirming until a terminal
// condition. It is bound to the caller's context: cancelling the context
// (screen unmount) tears the loop down.
type PaymentPoller struct {
	Lifecycle *Lifecycle
	Interval  time.Duration
	MaxWait   time.Duration
}

func NewPaymentPoller(l *Lifecycle) *PaymentPoller {
	return &PaymentPoller{
		Lifecycle: l,
		Interval:  DefaultPollInterval,
		MaxWait:   DefaultMaxWait,
	}
}

// Wait runs the confirmation loop. The first attempt fires immediately; after
// that one attempt per interval. It stops on:
//   - success (status CONFIRMED/ACTIVE or alreadyConfirmed): returns the
//     reservation;
//   - 401: credentials were already cleared by the gateway; returns the error
//     so the caller redirects to sign-in;
//   - context cancellation: returns ctx.Err();
//   - MaxWait elapsed: returns ErrPollTimeout.
//
// A 400 is the expected "not yet confirmed" answer and continues silently.
// Any other error is logged and tolerated: a single flaky response must not
// abort the flow.
func (p *PaymentPoller) Wait(ctx context.Context) (*entities.Reservation, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxWait := p.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()

	for {
		reservation, already, err := p.Lifecycle.ConfirmPayment(ctx)
		switch {
		case err == nil:
			if already || reservation.Status == entities.StatusConfirmed || reservation.Status == entities.StatusActive {
				return reservation, nil
			}
			log.Printf("Confirmation answered with status %s, continuing", reservation.Status)
		case IsAuthError(err):
			return nil, err
		case IsNotReady(err):
			// Expected while the checkout page is still open.
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			log.Printf("Transient confirmation error, will retry: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrPollTimeout
		case <-ticker.C:
		}
	}
}
