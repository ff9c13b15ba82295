package service

import (
	"fmt"
	"log"
	"time"

	"parkpass/internal/entities"
)

// JobService runs the periodic reservation sweep: pending reservations whose
// checkout was abandoned expire, confirmed-but-never-scanned reservations
// expire once the admission window lapses, and admitted reservations complete
// when the window closes.
type JobService struct {
	Reservations *ReservationService
}

func NewJobService(reservations *ReservationService) *JobService {
	return &JobService{Reservations: reservations}
}

func (s *JobService) Sweep(now time.Time) (int, error) {
	updated := 0
	for _, r := range s.Reservations.Store.AllReservations() {
		var next entities.ReservationStatus

		switch r.Status {
		case entities.StatusPending:
			if now.Sub(r.CreatedAt) > checkoutDeadline {
				next = entities.StatusExpired
			}
		case entities.StatusConfirmed:
			if now.After(r.ValidUntil) {
				next = entities.StatusExpired
			}
		case entities.StatusActive:
			if now.After(r.ValidUntil) {
				if r.ConsumedAt != nil {
					next = entities.StatusCompleted
				} else {
					next = entities.StatusExpired
				}
			}
		}

		if next == "" {
			continue
		}

		r.Status = next
		if err := s.Reservations.Store.UpdateReservation(r); err != nil {
			return updated, fmt.Errorf("sweep: updating reservation %s: %w", r.ID, err)
		}
		if next == entities.StatusExpired && r.AppliedVoucherID != "" && r.QRToken == "" {
			s.Reservations.releaseVoucher(r.AppliedVoucherID)
		}
		s.Reservations.recordActivity(r.UserID, "reservation_"+string(next), r.ID,
			fmt.Sprintf("Reservation at %s is now %s", r.Location.Name, next))
		updated++
	}
	return updated, nil
}

// Run is the cron entry point.
func (s *JobService) Run() {
	n, err := s.Sweep(time.Now().UTC())
	if err != nil {
		log.Printf("Sweep job failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Sweep job: updated %d reservations", n)
	}
}
